package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

var ErrWordNotFound = errors.New("word not found")

const wordsCollection = "words"

// WordRepository provides access to the vocabulary word list.
type WordRepository struct {
	words []entities.Word
	byID  map[string]int
}

func NewWordRepository() (*WordRepository, error) {
	var wrapper struct {
		Words []entities.Word `json:"words"`
	}
	if err := loadAsset("words.json", &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Words) == 0 {
		return nil, errors.New("word list is empty")
	}

	byID := make(map[string]int, len(wrapper.Words))
	for i, w := range wrapper.Words {
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("duplicate word id %q", w.ID)
		}
		byID[w.ID] = i
	}

	return &WordRepository{words: wrapper.Words, byID: byID}, nil
}

func (r *WordRepository) All() []entities.Word {
	return append([]entities.Word(nil), r.words...)
}

func (r *WordRepository) Len() int {
	return len(r.words)
}

// At returns the word at position i modulo the list length.
func (r *WordRepository) At(i int) entities.Word {
	n := len(r.words)
	return r.words[((i%n)+n)%n]
}

func (r *WordRepository) GetByID(id string) (*entities.Word, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, ErrWordNotFound
	}
	w := r.words[i]
	return &w, nil
}

// Publish mirrors the word list into the words collection.
func (r *WordRepository) Publish(ctx context.Context, db docstore.Writer) error {
	for _, w := range r.words {
		data := map[string]any{
			"term":       w.Term,
			"definition": w.Definition,
			"example":    w.Example,
			"synonyms":   append([]string(nil), w.Synonyms...),
			"antonyms":   append([]string(nil), w.Antonyms...),
		}
		if err := db.Set(ctx, docstore.Join(wordsCollection, w.ID), data); err != nil {
			return fmt.Errorf("publish word %s: %w", w.ID, err)
		}
	}
	return nil
}
