package game

import "time"

// Settings holds the tunables shared by all sessions in a directory.
type Settings struct {
	MaxPlayers       int
	MinScoreFraction float64
	NicknameMinLen   int
	NicknameMaxLen   int
	CodeLength       int

	// LobbyTimeout and GameTimeout bound how long an inactive session may
	// sit in Lobby/InProgress before the sweep reclaims it. FinishedGrace
	// is how long a Finished or Cancelled session stays resolvable so late
	// ranking reads still work.
	LobbyTimeout  time.Duration
	GameTimeout   time.Duration
	FinishedGrace time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:       100,
		MinScoreFraction: DefaultMinScoreFraction,
		NicknameMinLen:   2,
		NicknameMaxLen:   20,
		CodeLength:       6,
		LobbyTimeout:     30 * time.Minute,
		GameTimeout:      2 * time.Hour,
		FinishedGrace:    10 * time.Minute,
	}
}
