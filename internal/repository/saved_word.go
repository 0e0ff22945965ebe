package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

type savedWordDoc struct {
	Term    string `mapstructure:"term"`
	SavedAt int64  `mapstructure:"saved_at"`
}

func savedWordsPath(uid string) string {
	return docstore.Join("user_words", uid, "saved_words")
}

// SavedWordRepository stores the words a user bookmarked.
type SavedWordRepository struct {
	store docstore.Store
}

func NewSavedWordRepository(store docstore.Store) *SavedWordRepository {
	return &SavedWordRepository{store: store}
}

func (r *SavedWordRepository) Save(ctx context.Context, uid string, w entities.SavedWord) error {
	data, err := docstore.Encode(savedWordDoc{Term: w.Term, SavedAt: toMillis(w.SavedAt)})
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, docstore.Join(savedWordsPath(uid), w.WordID), data); err != nil {
		return fmt.Errorf("save word: %w", err)
	}
	return nil
}

func (r *SavedWordRepository) Delete(ctx context.Context, uid, wordID string) error {
	if err := r.store.Delete(ctx, docstore.Join(savedWordsPath(uid), wordID)); err != nil {
		return fmt.Errorf("delete saved word: %w", err)
	}
	return nil
}

// List returns saved words, most recent first.
func (r *SavedWordRepository) List(ctx context.Context, uid string) ([]entities.SavedWord, error) {
	docs, err := r.store.List(ctx, savedWordsPath(uid))
	if err != nil {
		return nil, fmt.Errorf("list saved words: %w", err)
	}

	out := make([]entities.SavedWord, 0, len(docs))
	for _, d := range docs {
		var doc savedWordDoc
		if err := docstore.Decode(d.Data, &doc); err != nil {
			continue
		}
		out = append(out, entities.SavedWord{
			WordID:  d.ID(),
			Term:    doc.Term,
			SavedAt: fromMillis(doc.SavedAt),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}
