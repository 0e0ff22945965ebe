package telegram

import (
	"reflect"
	"testing"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

func TestVisibleOptions(t *testing.T) {
	fourOptions := entities.QuizQuestion{
		ID:            5,
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: "c",
	}

	tests := []struct {
		name       string
		q          entities.QuizQuestion
		fiftyFifty bool
		want       []int
	}{
		{
			name: "no power-up shows everything",
			q:    fourOptions,
			want: []int{0, 1, 2, 3},
		},
		{
			// incorrect = [0 1 3], keep = incorrect[5%3] = 3
			name:       "hides two incorrect options",
			q:          fourOptions,
			fiftyFifty: true,
			want:       []int{2, 3},
		},
		{
			name: "two incorrect options are both hidden",
			q: entities.QuizQuestion{
				ID:            1,
				Options:       []string{"a", "b", "c"},
				CorrectAnswer: "a",
			},
			fiftyFifty: true,
			want:       []int{0},
		},
		{
			name: "only correct option",
			q: entities.QuizQuestion{
				ID:            1,
				Options:       []string{"a"},
				CorrectAnswer: "a",
			},
			fiftyFifty: true,
			want:       []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visibleOptions(tt.q, tt.fiftyFifty)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("visibleOptions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleOptionsIsStable(t *testing.T) {
	q := entities.QuizQuestion{ID: 12, Options: []string{"w", "x", "y", "z"}, CorrectAnswer: "w"}

	first := visibleOptions(q, true)
	for range 5 {
		if got := visibleOptions(q, true); !reflect.DeepEqual(got, first) {
			t.Fatalf("visibleOptions() = %v, then %v", first, got)
		}
	}
	if len(first) != 2 || first[0] != 0 {
		t.Errorf("visibleOptions() = %v, want correct option plus one", first)
	}
}

func TestNextSpeed(t *testing.T) {
	tests := []struct {
		current float64
		want    float64
	}{
		{1, 1.25},
		{2, 0.75},
		{0.75, 1},
		{3, 1},
	}

	for _, tt := range tests {
		if got := nextSpeed(tt.current); got != tt.want {
			t.Errorf("nextSpeed(%v) = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestFormatPosition(t *testing.T) {
	if got := formatPosition(0); got != "0:00" {
		t.Errorf("formatPosition(0) = %q", got)
	}
	if got := formatPosition(125_400_000_000); got != "2:05" {
		t.Errorf("formatPosition(2m5.4s) = %q", got)
	}
}
