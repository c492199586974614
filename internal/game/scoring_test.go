package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScorePoints(t *testing.T) {
	tests := []struct {
		name         string
		basePoints   int
		responseTime float64
		timeLimit    float64
		minFraction  float64
		want         int
	}{
		{"instant answer gets full points", 1000, 0, 30, 0.5, 1000},
		{"answer at limit gets floor", 1000, 30, 30, 0.5, 500},
		{"answer past limit stays at floor", 1000, 45, 30, 0.5, 500},
		{"quarter-time answer", 1000, 7.5, 30, 0.5, 750},
		{"rounding up", 1000, 10, 30, 0.5, 667},
		{"zero floor allows decay to zero", 1000, 30, 30, 0, 0},
		{"custom base points", 500, 0, 20, 0.5, 500},
		{"zero time limit awards full base points", 1000, 5, 0, 0.5, 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := scorePoints(tc.basePoints, tc.responseTime, tc.timeLimit, tc.minFraction)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuestionMatches(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	q := Question{CorrectOptionIDs: []uuid.UUID{a, b}}

	assert.True(t, q.matches([]uuid.UUID{a, b}))
	assert.True(t, q.matches([]uuid.UUID{b, a}), "order must not matter")
	assert.False(t, q.matches([]uuid.UUID{a}), "subset is not a match")
	assert.False(t, q.matches([]uuid.UUID{a, b, c}), "superset is not a match")
	assert.False(t, q.matches([]uuid.UUID{a, a}), "duplicate selection is not a match")
	assert.False(t, q.matches(nil))
}
