package entities

import "time"

// Word is a vocabulary entry.
type Word struct {
	ID         string   `json:"id"`
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Example    string   `json:"example"`
	Synonyms   []string `json:"synonyms"`
	Antonyms   []string `json:"antonyms"`
}

// SavedWord is a word the user bookmarked for review.
type SavedWord struct {
	WordID  string
	Term    string
	SavedAt time.Time
}
