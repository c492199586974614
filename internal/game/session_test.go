package game

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable clock injected in place of time.Now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// twoQuestions builds a two-question play order with a known answer key:
// question 0 is single-select, question 1 is multi-select.
func twoQuestions() []Question {
	q0 := Question{
		ID:               uuid.New(),
		Text:             "Capital of France?",
		TimeLimitSeconds: 30,
		BasePoints:       1000,
		Options: []Option{
			{ID: uuid.New(), Text: "Paris"},
			{ID: uuid.New(), Text: "Lyon"},
			{ID: uuid.New(), Text: "Marseille"},
		},
	}
	q0.CorrectOptionIDs = []uuid.UUID{q0.Options[0].ID}

	q1 := Question{
		ID:               uuid.New(),
		Text:             "Which are prime?",
		TimeLimitSeconds: 20,
		BasePoints:       1000,
		Options: []Option{
			{ID: uuid.New(), Text: "2"},
			{ID: uuid.New(), Text: "3"},
			{ID: uuid.New(), Text: "4"},
		},
	}
	q1.CorrectOptionIDs = []uuid.UUID{q1.Options[0].ID, q1.Options[1].ID}

	return []Question{q0, q1}
}

func testSession(t *testing.T, clk *fakeClock, questions []Question) *Session {
	t.Helper()
	return newSession("ABC234", uuid.New(), "Geography", uuid.New(), questions, DefaultSettings(), clk.Now)
}

func TestSessionJoinOnlyInLobby(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, twoQuestions())

	assert.True(t, s.CanJoin())
	_, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)

	_, err = s.Start()
	require.NoError(t, err)
	assert.False(t, s.CanJoin())

	_, err = s.TryAddPlayer("bob", "conn-b")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, s.PlayerCount())
}

func TestSessionNicknameRules(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, twoQuestions())

	_, err := s.TryAddPlayer("Alice", "conn-a")
	require.NoError(t, err)

	tests := []struct {
		name     string
		nickname string
		wantErr  error
	}{
		{"case-insensitive duplicate", "alice", ErrConflict},
		{"uppercase duplicate", "ALICE", ErrConflict},
		{"too short", "a", ErrInvalidInput},
		{"too long", "abcdefghijklmnopqrstu", ErrInvalidInput},
		{"blank", "   ", ErrInvalidInput},
		{"control characters", "bob\n", ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.TryAddPlayer(tc.nickname, "conn-x")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	p, err := s.TryAddPlayer("bob_42", "conn-b")
	require.NoError(t, err)
	assert.Equal(t, "bob_42", p.Nickname)
}

func TestSessionCapacity(t *testing.T) {
	clk := newFakeClock()
	settings := DefaultSettings()
	settings.MaxPlayers = 2
	s := newSession("ABC234", uuid.New(), "Quiz", uuid.New(), twoQuestions(), settings, clk.Now)

	_, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)
	_, err = s.TryAddPlayer("bob", "conn-b")
	require.NoError(t, err)

	_, err = s.TryAddPlayer("carol", "conn-c")
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestSessionRemovePlayerIdempotent(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, twoQuestions())

	p, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)

	s.RemovePlayer(p.ID)
	assert.Equal(t, 0, s.PlayerCount())
	s.RemovePlayer(p.ID)
	assert.Equal(t, 0, s.PlayerCount())

	// Removing the last player must not destroy the session.
	assert.Equal(t, StatusLobby, s.Status())
}

func TestSessionStateMachine(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	_, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)

	// Operations out of order are rejected without state damage.
	_, err = s.Reveal()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, _, err = s.Advance()
	assert.ErrorIs(t, err, ErrInvalidState)

	first, err := s.Start()
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s.Status())
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, questions[0].ID, first.QuestionID)
	assert.Equal(t, clk.Now(), first.StartedAt)

	// Start is not re-entrant.
	_, err = s.Start()
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, StatusShowingResults, s.Status())

	// Submissions are closed while results are showing.
	_, err = s.RecordAnswer(uuid.New(), questions[0].ID, []uuid.UUID{questions[0].Options[0].ID}, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	clk.Advance(5 * time.Second)
	next, done, err := s.Advance()
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, next)
	assert.Equal(t, 1, next.Index)
	assert.Equal(t, questions[1].ID, next.QuestionID)
	assert.Equal(t, clk.Now(), next.StartedAt, "advancing must re-stamp the question start time")

	_, err = s.Reveal()
	require.NoError(t, err)

	next, done, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, next)
	assert.Equal(t, StatusFinished, s.Status())

	// Terminal states reject everything, including cancel.
	_, err = s.Start()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.Cancel(), ErrInvalidState)
}

func TestSessionStartWithoutQuestions(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, nil)

	_, err := s.Start()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StatusLobby, s.Status())
}

func TestSessionRecordAnswer(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	alice, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)
	bob, err := s.TryAddPlayer("bob", "conn-b")
	require.NoError(t, err)

	q0 := questions[0]

	// No answers before start.
	_, err = s.RecordAnswer(alice.ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Start()
	require.NoError(t, err)

	// Correct, instant: full base points.
	out, err := s.RecordAnswer(alice.ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 0)
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, 1000, out.Points)
	assert.Equal(t, 1000, out.TotalScore)
	assert.Equal(t, 1, out.AnsweredCount)
	assert.False(t, out.AllAnswered)

	// Duplicate submission for the same question is rejected and scores once.
	_, err = s.RecordAnswer(alice.ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 0)
	assert.ErrorIs(t, err, ErrConflict)

	// Wrong option: zero points, still counts as answered.
	out, err = s.RecordAnswer(bob.ID, q0.ID, []uuid.UUID{q0.Options[1].ID}, 2)
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Zero(t, out.Points)
	assert.Equal(t, 2, out.AnsweredCount)
	assert.True(t, out.AllAnswered)

	// Unknown player, stale question, bad input.
	_, err = s.RecordAnswer(uuid.New(), q0.ID, []uuid.UUID{q0.Options[0].ID}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.RecordAnswer(bob.ID, uuid.New(), []uuid.UUID{q0.Options[0].ID}, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Reveal()
	require.NoError(t, err)
	_, _, err = s.Advance()
	require.NoError(t, err)

	q1 := questions[1]
	_, err = s.RecordAnswer(alice.ID, q1.ID, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.RecordAnswer(alice.ID, q1.ID, []uuid.UUID{q1.Options[0].ID}, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Multi-select needs the exact set.
	out, err = s.RecordAnswer(alice.ID, q1.ID, []uuid.UUID{q1.Options[0].ID, q1.Options[1].ID}, 20)
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, 500, out.Points, "answer at the limit earns the floor")
	assert.Equal(t, 1500, out.TotalScore)

	out, err = s.RecordAnswer(bob.ID, q1.ID, []uuid.UUID{q1.Options[0].ID}, 1)
	require.NoError(t, err)
	assert.False(t, out.Correct, "partial selection of a multi-select scores zero")
}

func TestSessionRankingOrder(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	alice, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)
	clk.Advance(time.Second)
	bob, err := s.TryAddPlayer("bob", "conn-b")
	require.NoError(t, err)
	clk.Advance(time.Second)
	carol, err := s.TryAddPlayer("carol", "conn-c")
	require.NoError(t, err)

	_, err = s.Start()
	require.NoError(t, err)

	q0 := questions[0]
	correct := []uuid.UUID{q0.Options[0].ID}

	// Carol answers fastest, alice and bob tie on points.
	_, err = s.RecordAnswer(carol.ID, q0.ID, correct, 0)
	require.NoError(t, err)
	_, err = s.RecordAnswer(alice.ID, q0.ID, correct, 15)
	require.NoError(t, err)
	_, err = s.RecordAnswer(bob.ID, q0.ID, correct, 15)
	require.NoError(t, err)

	ranking := s.Ranking()
	require.Len(t, ranking, 3)
	assert.Equal(t, carol.ID, ranking[0].PlayerID)
	assert.Equal(t, 1, ranking[0].Rank)
	// Tied scores rank the earlier joiner higher.
	assert.Equal(t, alice.ID, ranking[1].PlayerID)
	assert.Equal(t, bob.ID, ranking[2].PlayerID)
	assert.Equal(t, ranking[1].Score, ranking[2].Score)
}

func TestSessionRevealPayload(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	alice, err := s.TryAddPlayer("alice", "conn-a")
	require.NoError(t, err)
	_, err = s.TryAddPlayer("bob", "conn-b")
	require.NoError(t, err)

	_, err = s.Start()
	require.NoError(t, err)

	q0 := questions[0]
	_, err = s.RecordAnswer(alice.ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 0)
	require.NoError(t, err)

	reveal, err := s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, q0.ID, reveal.QuestionID)
	assert.Equal(t, q0.CorrectOptionIDs, reveal.CorrectOptionIDs)
	require.Len(t, reveal.Results, 2)

	byPlayer := make(map[uuid.UUID]RoundResult)
	for _, r := range reveal.Results {
		byPlayer[r.PlayerID] = r
	}
	assert.True(t, byPlayer[alice.ID].Answered)
	assert.True(t, byPlayer[alice.ID].Correct)
	assert.Equal(t, 1000, byPlayer[alice.ID].Points)
	assert.Equal(t, 1, byPlayer[alice.ID].Rank)

	for id, r := range byPlayer {
		if id == alice.ID {
			continue
		}
		assert.False(t, r.Answered, "non-answering player reported as not answered")
		assert.Zero(t, r.Points)
	}
}

func TestSessionFullGame(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	players := make([]PlayerView, 0, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		p, err := s.TryAddPlayer(name, fmt.Sprintf("conn-%d", i))
		require.NoError(t, err)
		players = append(players, p)
		clk.Advance(time.Second)
	}

	_, err := s.Start()
	require.NoError(t, err)

	// Round one: alice and bob correct, carol wrong.
	q0 := questions[0]
	_, err = s.RecordAnswer(players[0].ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 0)
	require.NoError(t, err)
	_, err = s.RecordAnswer(players[1].ID, q0.ID, []uuid.UUID{q0.Options[0].ID}, 30)
	require.NoError(t, err)
	_, err = s.RecordAnswer(players[2].ID, q0.ID, []uuid.UUID{q0.Options[2].ID}, 5)
	require.NoError(t, err)
	assert.True(t, s.AllPlayersAnswered())

	_, err = s.Reveal()
	require.NoError(t, err)
	_, _, err = s.Advance()
	require.NoError(t, err)

	// Round two: only bob correct, fast.
	q1 := questions[1]
	both := []uuid.UUID{q1.Options[0].ID, q1.Options[1].ID}
	_, err = s.RecordAnswer(players[1].ID, q1.ID, both, 0)
	require.NoError(t, err)
	_, err = s.RecordAnswer(players[0].ID, q1.ID, []uuid.UUID{q1.Options[2].ID}, 3)
	require.NoError(t, err)
	_, err = s.RecordAnswer(players[2].ID, q1.ID, both, 10)
	require.NoError(t, err)

	_, err = s.Reveal()
	require.NoError(t, err)
	_, done, err := s.Advance()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StatusFinished, s.Status())

	// bob: 500 + 1000 = 1500; alice: 1000 + 0; carol: 0 + 500.
	ranking := s.Ranking()
	require.Len(t, ranking, 3)
	assert.Equal(t, players[1].ID, ranking[0].PlayerID)
	assert.Equal(t, 1500, ranking[0].Score)
	assert.Equal(t, players[0].ID, ranking[1].PlayerID)
	assert.Equal(t, 1000, ranking[1].Score)
	assert.Equal(t, players[2].ID, ranking[2].PlayerID)
	assert.Equal(t, 500, ranking[2].Score)

	// Ranking stays readable after the game ends.
	snap := s.Snapshot()
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Len(t, snap.Players, 3)
}

func TestSessionCancel(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, twoQuestions())

	require.NoError(t, s.Cancel())
	assert.Equal(t, StatusCancelled, s.Status())
	assert.ErrorIs(t, s.Cancel(), ErrInvalidState)

	_, err := s.TryAddPlayer("alice", "conn-a")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSessionConcurrentAnswers(t *testing.T) {
	clk := newFakeClock()
	questions := twoQuestions()
	s := testSession(t, clk, questions)

	const n = 50
	players := make([]PlayerView, 0, n)
	for i := 0; i < n; i++ {
		p, err := s.TryAddPlayer(fmt.Sprintf("player%02d", i), fmt.Sprintf("conn-%02d", i))
		require.NoError(t, err)
		players = append(players, p)
	}

	_, err := s.Start()
	require.NoError(t, err)

	q0 := questions[0]
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, p := range players {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = s.RecordAnswer(id, q0.ID, []uuid.UUID{q0.Options[0].ID}, 0)
		}(i, p.ID)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, n, s.AnsweredCount())
	assert.True(t, s.AllPlayersAnswered())

	for _, e := range s.Ranking() {
		assert.Equal(t, 1000, e.Score, "each player scores exactly once")
	}
}

func TestSessionErrorsUnwrap(t *testing.T) {
	clk := newFakeClock()
	s := testSession(t, clk, twoQuestions())
	_, err := s.TryAddPlayer("x", "conn-a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.NotEqual(t, ErrInvalidInput, err, "sentinels are wrapped, not returned bare")
}
