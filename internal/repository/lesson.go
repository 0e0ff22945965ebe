package repository

import (
	"errors"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

var ErrLessonNotFound = errors.New("lesson not found")

// LessonRepository serves the video lesson catalog.
type LessonRepository struct {
	lessons []entities.VideoLesson
}

func NewLessonRepository() (*LessonRepository, error) {
	var wrapper struct {
		Lessons []entities.VideoLesson `json:"lessons"`
	}
	if err := loadAsset("lessons.json", &wrapper); err != nil {
		return nil, err
	}
	return &LessonRepository{lessons: wrapper.Lessons}, nil
}

func (r *LessonRepository) All() []entities.VideoLesson {
	return append([]entities.VideoLesson(nil), r.lessons...)
}

func (r *LessonRepository) GetByID(id string) (*entities.VideoLesson, error) {
	for _, l := range r.lessons {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, ErrLessonNotFound
}
