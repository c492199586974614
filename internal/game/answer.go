package game

import (
	"time"

	"github.com/google/uuid"
)

// Answer records one player's response to one question. Correctness and
// points are computed exactly once at submission time and never mutated.
type Answer struct {
	QuestionID        uuid.UUID   `json:"question_id"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids"`
	ResponseTime      float64     `json:"response_time"` // seconds since the question was presented
	Correct           bool        `json:"correct"`
	Points            int         `json:"points"`
	SubmittedAt       time.Time   `json:"submitted_at"`
}

// AnswerOutcome is returned to the gateway after a successful submission.
// Correctness and points are withheld from players until reveal; the gateway
// only fans out the answered count.
type AnswerOutcome struct {
	PlayerID      uuid.UUID `json:"player_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	TotalScore    int       `json:"total_score"`
	AnsweredCount int       `json:"answered_count"`
	AllAnswered   bool      `json:"all_answered"`
}
