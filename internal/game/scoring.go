package game

import "math"

// Default scoring parameters, overridable through Settings and per-question
// base points from the catalog.
const (
	DefaultBasePoints       = 1000
	DefaultMinScoreFraction = 0.5
)

// scorePoints computes the speed-weighted award for a correct answer:
// basePoints scaled by the remaining fraction of the time limit, floored at
// minFraction so a correct-but-slow answer still earns something.
func scorePoints(basePoints int, responseTime, timeLimit, minFraction float64) int {
	if timeLimit <= 0 {
		return basePoints
	}
	if responseTime < 0 {
		responseTime = 0
	}
	frac := 1 - responseTime/timeLimit
	if frac < minFraction {
		frac = minFraction
	}
	return int(math.Round(float64(basePoints) * frac))
}
