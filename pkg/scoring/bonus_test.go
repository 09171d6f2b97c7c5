package scoring

import "testing"

func TestWithBonus(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConfig())
	tests := []struct {
		name              string
		score             int
		performed, target int
		want              int
	}{
		{"inside window", 45, 9, 10, 55},
		{"ratio too low", 45, 3, 10, 45},
		{"ratio at lower bound", 45, 8, 10, 45},
		{"ratio at upper bound", 45, 12, 10, 45},
		{"ratio just above one", 45, 11, 10, 55},
		{"score at threshold", 50, 10, 10, 50},
		{"score just below threshold", 49, 10, 10, 59},
		{"high score untouched", 95, 10, 10, 95},
		{"zero score", 0, 10, 10, 10},
	}
	for _, tc := range tests {
		if got := e.withBonus(tc.score, tc.performed, tc.target); got != tc.want {
			t.Errorf("%s: withBonus(%d, %d, %d) = %d, want %d", tc.name, tc.score, tc.performed, tc.target, got, tc.want)
		}
	}
}
