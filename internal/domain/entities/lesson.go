package entities

// VideoLesson is a short video with a one-time currency reward.
type VideoLesson struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURI string `json:"source_uri"`
	Reward    int    `json:"reward"`
}
