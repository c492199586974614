package models

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is an authored quiz owned by a user.
type Quiz struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question is one question of a quiz. Options carry the answer key; the
// game engine captures a snapshot of all of this when a session is created,
// so later edits do not affect running games.
type Question struct {
	ID               uuid.UUID `json:"id"`
	QuizID           uuid.UUID `json:"quiz_id"`
	Text             string    `json:"text"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	BasePoints       int       `json:"base_points"`
	OrderNum         int       `json:"order_num"`
	Options          []Option  `json:"options,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Option is one answer choice. IsCorrect is only ever serialized toward the
// quiz owner; play payloads use the game package's option shape instead.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
	OrderNum   int       `json:"order_num"`
}
