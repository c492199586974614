package game

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// PlayerStatus represents a player's connection state within a session.
type PlayerStatus string

const (
	PlayerConnected    PlayerStatus = "connected"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Player is one participant in a session. All fields are guarded by the
// owning session's mutex; the struct is never shared outside it.
type Player struct {
	ID           uuid.UUID
	ConnectionID string
	Nickname     string
	Status       PlayerStatus
	Score        int
	JoinedAt     time.Time

	// answers is keyed by question id and append-only: at most one record
	// per question, later submissions are rejected.
	answers map[uuid.UUID]*Answer
}

func newPlayer(nickname, connectionID string, joinedAt time.Time) *Player {
	return &Player{
		ID:           uuid.New(),
		ConnectionID: connectionID,
		Nickname:     nickname,
		Status:       PlayerConnected,
		JoinedAt:     joinedAt,
		answers:      make(map[uuid.UUID]*Answer),
	}
}

// PlayerView is the immutable snapshot of a player handed to callers. The
// connection id is for the gateway's routing and never serialized.
type PlayerView struct {
	ID           uuid.UUID    `json:"id"`
	Nickname     string       `json:"nickname"`
	Status       PlayerStatus `json:"status"`
	Score        int          `json:"score"`
	JoinedAt     time.Time    `json:"joined_at"`
	ConnectionID string       `json:"-"`
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:           p.ID,
		Nickname:     p.Nickname,
		Status:       p.Status,
		Score:        p.Score,
		JoinedAt:     p.JoinedAt,
		ConnectionID: p.ConnectionID,
	}
}

// validNickname reports whether the nickname fits the length bounds and the
// restricted character set (letters, digits, space, underscore, hyphen).
func validNickname(nickname string, minLen, maxLen int) bool {
	n := strings.TrimSpace(nickname)
	if n != nickname {
		return false
	}
	runes := []rune(nickname)
	if len(runes) < minLen || len(runes) > maxLen {
		return false
	}
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '_', '-':
			continue
		}
		return false
	}
	return true
}
