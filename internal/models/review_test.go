package models

import "testing"

func TestAverageRating(t *testing.T) {
	mk := func(ratings ...int) []Review {
		reviews := make([]Review, len(ratings))
		for i, r := range ratings {
			reviews[i] = Review{Rating: r}
		}
		return reviews
	}

	tests := []struct {
		name    string
		reviews []Review
		want    int
	}{
		{"empty list", nil, 0},
		{"single review", mk(4), 4},
		{"exact mean", mk(2, 4), 3},
		{"truncates down", mk(5, 4), 4},    // 4.5 -> 4
		{"truncates 3.66", mk(5, 3, 3), 3}, // 11/3 -> 3
		{"all max", mk(5, 5, 5, 5), 5},
		{"all min", mk(1, 1, 1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageRating(tt.reviews); got != tt.want {
				t.Errorf("AverageRating = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsValidRating(t *testing.T) {
	tests := []struct {
		rating int
		want   bool
	}{
		{0, false}, {1, true}, {3, true}, {5, true}, {6, false}, {-1, false},
	}
	for _, tt := range tests {
		if got := IsValidRating(tt.rating); got != tt.want {
			t.Errorf("IsValidRating(%d) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestRentalIsOpen(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		completed bool
		want      bool
	}{
		{"active and not completed", true, false, true},
		{"completed", true, true, false},
		{"cancelled", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Rental{Active: tt.active, Completed: tt.completed}
			if got := r.IsOpen(); got != tt.want {
				t.Errorf("IsOpen = %v, want %v", got, tt.want)
			}
		})
	}
}
