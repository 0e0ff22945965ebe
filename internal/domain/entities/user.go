package entities

import (
	"slices"
	"time"
)

// User is the profile document of a learner.
type User struct {
	ID               string
	Name             string
	Email            string
	Currency         int
	CompletedLessons []string
	PurchasedItems   []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewUser(id, name, email string) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasCompletedLesson reports whether the lesson is in the completed set.
func (u *User) HasCompletedLesson(lessonID string) bool {
	return slices.Contains(u.CompletedLessons, lessonID)
}

// HasPurchased reports whether the item is in the purchased set.
func (u *User) HasPurchased(itemID string) bool {
	return slices.Contains(u.PurchasedItems, itemID)
}
