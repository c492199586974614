package game

import (
	"time"

	"github.com/google/uuid"
)

// Option is one selectable choice of a question, without the correct flag.
type Option struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// Question is the play snapshot of one question: content, options and the
// answer key, resolved from the catalog once at session creation. The
// engine never queries the catalog mid-game.
type Question struct {
	ID               uuid.UUID
	Text             string
	TimeLimitSeconds int
	BasePoints       int
	Options          []Option
	CorrectOptionIDs []uuid.UUID
}

// correctSet returns the answer key as a set for order-independent comparison.
func (q Question) correctSet() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(q.CorrectOptionIDs))
	for _, id := range q.CorrectOptionIDs {
		set[id] = struct{}{}
	}
	return set
}

// matches reports whether the selected set is exactly the correct set,
// ignoring order and duplicates.
func (q Question) matches(selected []uuid.UUID) bool {
	correct := q.correctSet()
	seen := make(map[uuid.UUID]struct{}, len(selected))
	for _, id := range selected {
		if _, ok := correct[id]; !ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(correct)
}

// QuestionPayload is what the gateway broadcasts when a question goes live.
// Options carry no correct flags; StartedAt anchors the client countdown.
type QuestionPayload struct {
	Index            int       `json:"index"`
	Total            int       `json:"total"`
	QuestionID       uuid.UUID `json:"question_id"`
	Text             string    `json:"text"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	Options          []Option  `json:"options"`
	StartedAt        time.Time `json:"started_at"`
}

// RevealPayload exposes the answer key for the just-ended question together
// with every player's round result and the standings after scoring.
type RevealPayload struct {
	QuestionID       uuid.UUID     `json:"question_id"`
	CorrectOptionIDs []uuid.UUID   `json:"correct_option_ids"`
	Results          []RoundResult `json:"results"`
	Ranking          []RankEntry   `json:"ranking"`
}

// RoundResult is one player's outcome for one question, delivered privately
// to that player after reveal.
type RoundResult struct {
	PlayerID   uuid.UUID `json:"player_id"`
	Nickname   string    `json:"nickname"`
	Answered   bool      `json:"answered"`
	Correct    bool      `json:"correct"`
	Points     int       `json:"points"`
	TotalScore int       `json:"total_score"`
	Rank       int       `json:"rank"`
}

// RankEntry is one row of the score-ordered standings.
type RankEntry struct {
	Rank     int       `json:"rank"`
	PlayerID uuid.UUID `json:"player_id"`
	Nickname string    `json:"nickname"`
	Score    int       `json:"score"`
}
