package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

var ErrUserNotFound = errors.New("user not found")

const usersCollection = "users"

type userDoc struct {
	Name             string   `mapstructure:"name"`
	Email            string   `mapstructure:"email"`
	Currency         int      `mapstructure:"currency"`
	CompletedLessons []string `mapstructure:"completed_lessons"`
	PurchasedItems   []string `mapstructure:"purchased_items"`
	CreatedAt        int64    `mapstructure:"created_at"`
	UpdatedAt        int64    `mapstructure:"updated_at"`
}

// UserPath returns the path of a user profile document.
func UserPath(uid string) string {
	return docstore.Join(usersCollection, uid)
}

// decodeUser converts profile document data into a User.
func decodeUser(uid string, data map[string]any) (*entities.User, error) {
	var doc userDoc
	if err := docstore.Decode(data, &doc); err != nil {
		return nil, err
	}
	return &entities.User{
		ID:               uid,
		Name:             doc.Name,
		Email:            doc.Email,
		Currency:         doc.Currency,
		CompletedLessons: doc.CompletedLessons,
		PurchasedItems:   doc.PurchasedItems,
		CreatedAt:        fromMillis(doc.CreatedAt),
		UpdatedAt:        fromMillis(doc.UpdatedAt),
	}, nil
}

// UserRepository provides access to user profiles.
type UserRepository struct {
	db docstore.Tx
}

// NewUserRepository works on the whole store or on a transaction.
func NewUserRepository(db docstore.Tx) *UserRepository {
	return &UserRepository{db: db}
}

// Create writes the profile, replacing any existing one.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	data := map[string]any{
		"name":              user.Name,
		"email":             user.Email,
		"currency":          int64(user.Currency),
		"completed_lessons": append([]string{}, user.CompletedLessons...),
		"purchased_items":   append([]string{}, user.PurchasedItems...),
		"created_at":        toMillis(user.CreatedAt),
		"updated_at":        toMillis(user.UpdatedAt),
	}
	if err := r.db.Set(ctx, UserPath(user.ID), data); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, uid string) (*entities.User, error) {
	path := UserPath(uid)
	data, err := r.db.Get(ctx, path)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user, err := decodeUser(uid, data)
	if err != nil {
		return nil, malformed(ErrUserNotFound, path, err)
	}
	return user, nil
}

// IncrementCurrency atomically adds delta to the balance.
func (r *UserRepository) IncrementCurrency(ctx context.Context, uid string, delta int) error {
	if err := r.db.Increment(ctx, UserPath(uid), "currency", int64(delta)); err != nil {
		return fmt.Errorf("increment currency: %w", err)
	}
	return r.touch(ctx, uid)
}

// SetCompletedLessons replaces the completed lesson set.
func (r *UserRepository) SetCompletedLessons(ctx context.Context, uid string, lessons []string) error {
	return r.update(ctx, uid, "completed_lessons", lessons)
}

// SetPurchasedItems replaces the purchased item set.
func (r *UserRepository) SetPurchasedItems(ctx context.Context, uid string, items []string) error {
	return r.update(ctx, uid, "purchased_items", items)
}

func (r *UserRepository) update(ctx context.Context, uid, field string, value []string) error {
	err := r.db.Update(ctx, UserPath(uid), map[string]any{
		field:        append([]string{}, value...),
		"updated_at": time.Now().UnixMilli(),
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user %s: %w", field, err)
	}
	return nil
}

func (r *UserRepository) touch(ctx context.Context, uid string) error {
	err := r.db.Update(ctx, UserPath(uid), map[string]any{"updated_at": time.Now().UnixMilli()})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}
