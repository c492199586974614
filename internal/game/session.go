package game

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusLobby          Status = "lobby"
	StatusInProgress     Status = "in_progress"
	StatusShowingResults Status = "showing_results"
	StatusFinished       Status = "finished"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether no further state-changing operations are accepted.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Session is the authoritative state machine for one running quiz: lifecycle,
// player membership, the current-question cursor, answer records and scores.
//
// Multiple goroutines may invoke methods on a Session simultaneously; every
// operation takes the session mutex, mutates in memory and returns without
// blocking on I/O.
type Session struct {
	ID         uuid.UUID
	Code       string
	QuizID     uuid.UUID
	QuizTitle  string
	HostUserID uuid.UUID

	mu           sync.Mutex
	hostConnID   string
	status       Status
	questions    []Question // play order, fixed at creation
	cursor       int        // -1 before start; >= len(questions) means finished
	questionAt   time.Time  // when the current question was presented
	players      map[uuid.UUID]*Player
	createdAt    time.Time
	lastActivity time.Time

	settings Settings
	now      func() time.Time
}

func newSession(code string, quizID uuid.UUID, quizTitle string, hostUserID uuid.UUID, questions []Question, settings Settings, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:           uuid.New(),
		Code:         code,
		QuizID:       quizID,
		QuizTitle:    quizTitle,
		HostUserID:   hostUserID,
		status:       StatusLobby,
		questions:    questions,
		cursor:       -1,
		players:      make(map[uuid.UUID]*Player),
		createdAt:    t,
		lastActivity: t,
		settings:     settings,
		now:          now,
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CanJoin reports whether new players are accepted: only while in Lobby.
func (s *Session) CanJoin() bool {
	return s.Status() == StatusLobby
}

// QuestionCount returns the length of the fixed play order.
func (s *Session) QuestionCount() int {
	return len(s.questions)
}

// SetHostConnection updates the host's connection id (host reconnect).
func (s *Session) SetHostConnection(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostConnID = connectionID
	s.lastActivity = s.now()
}

// HostConnection returns the host's current connection id, if any.
func (s *Session) HostConnection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostConnID
}

// TryAddPlayer joins a player while the session is in Lobby. The nickname
// must be well-formed and unique within the session, case-insensitively.
func (s *Session) TryAddPlayer(nickname, connectionID string) (PlayerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return PlayerView{}, fmt.Errorf("session %s not joinable: %w", s.Code, ErrInvalidState)
	}
	if !validNickname(nickname, s.settings.NicknameMinLen, s.settings.NicknameMaxLen) {
		return PlayerView{}, fmt.Errorf("nickname %q: %w", nickname, ErrInvalidInput)
	}
	if len(s.players) >= s.settings.MaxPlayers {
		return PlayerView{}, fmt.Errorf("limit %d reached: %w", s.settings.MaxPlayers, ErrCapacity)
	}
	if _, ok := s.findByNicknameLocked(nickname); ok {
		return PlayerView{}, fmt.Errorf("nickname %q taken: %w", nickname, ErrConflict)
	}

	p := newPlayer(nickname, connectionID, s.now())
	s.players[p.ID] = p
	s.lastActivity = p.JoinedAt
	return p.view(), nil
}

// RemovePlayer removes a player, idempotently. The session itself is never
// destroyed here, even when the last player leaves.
func (s *Session) RemovePlayer(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; ok {
		delete(s.players, playerID)
		s.lastActivity = s.now()
	}
}

// FindPlayerByConnection returns the player bound to a connection id.
func (s *Session) FindPlayerByConnection(connectionID string) (PlayerView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.ConnectionID == connectionID {
			return p.view(), true
		}
	}
	return PlayerView{}, false
}

// FindPlayerByNickname returns the player with the nickname, compared
// case-insensitively.
func (s *Session) FindPlayerByNickname(nickname string) (PlayerView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.findByNicknameLocked(nickname); ok {
		return p.view(), true
	}
	return PlayerView{}, false
}

func (s *Session) findByNicknameLocked(nickname string) (*Player, bool) {
	for _, p := range s.players {
		if strings.EqualFold(p.Nickname, nickname) {
			return p, true
		}
	}
	return nil, false
}

// Start moves the session from Lobby to InProgress on the first question
// and stamps the question start time.
func (s *Session) Start() (QuestionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return QuestionPayload{}, fmt.Errorf("start from %s: %w", s.status, ErrInvalidState)
	}
	if len(s.questions) == 0 {
		return QuestionPayload{}, fmt.Errorf("quiz has no questions: %w", ErrInvalidState)
	}
	s.presentQuestionLocked(0)
	return s.questionPayloadLocked(), nil
}

// presentQuestionLocked sets the cursor and stamps the start time. Entering
// InProgress always re-stamps, including re-entry for the next question.
func (s *Session) presentQuestionLocked(index int) {
	s.cursor = index
	s.questionAt = s.now()
	s.lastActivity = s.questionAt
	s.status = StatusInProgress
}

func (s *Session) currentQuestionLocked() (Question, bool) {
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[s.cursor], true
}

func (s *Session) questionPayloadLocked() QuestionPayload {
	q := s.questions[s.cursor]
	return QuestionPayload{
		Index:            s.cursor,
		Total:            len(s.questions),
		QuestionID:       q.ID,
		Text:             q.Text,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Options:          q.Options,
		StartedAt:        s.questionAt,
	}
}

// CurrentQuestion returns the live question payload.
func (s *Session) CurrentQuestion() (QuestionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return QuestionPayload{}, fmt.Errorf("no active question in %s: %w", s.status, ErrInvalidState)
	}
	return s.questionPayloadLocked(), nil
}

// RecordAnswer validates and records one player's answer for the current
// question. Correctness and points are computed here, once, against the
// answer key captured at session creation; the player's cumulative score is
// credited in the same locked step.
func (s *Session) RecordAnswer(playerID, questionID uuid.UUID, selectedOptionIDs []uuid.UUID, responseTime float64) (AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return AnswerOutcome{}, fmt.Errorf("answers not accepted in %s: %w", s.status, ErrInvalidState)
	}
	q, ok := s.currentQuestionLocked()
	if !ok || q.ID != questionID {
		return AnswerOutcome{}, fmt.Errorf("question %s is not current: %w", questionID, ErrInvalidState)
	}
	p, ok := s.players[playerID]
	if !ok {
		return AnswerOutcome{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if _, ok := p.answers[questionID]; ok {
		return AnswerOutcome{}, fmt.Errorf("player %s already answered question %s: %w", playerID, questionID, ErrConflict)
	}
	if len(selectedOptionIDs) == 0 {
		return AnswerOutcome{}, fmt.Errorf("empty answer selection: %w", ErrInvalidInput)
	}
	if responseTime < 0 {
		return AnswerOutcome{}, fmt.Errorf("negative response time: %w", ErrInvalidInput)
	}

	correct := q.matches(selectedOptionIDs)
	points := 0
	if correct {
		points = scorePoints(q.BasePoints, responseTime, float64(q.TimeLimitSeconds), s.settings.MinScoreFraction)
	}

	p.answers[questionID] = &Answer{
		QuestionID:        questionID,
		SelectedOptionIDs: append([]uuid.UUID(nil), selectedOptionIDs...),
		ResponseTime:      responseTime,
		Correct:           correct,
		Points:            points,
		SubmittedAt:       s.now(),
	}
	p.Score += points
	s.lastActivity = s.now()

	count := s.answeredCountLocked(q.ID)
	return AnswerOutcome{
		PlayerID:      playerID,
		QuestionID:    questionID,
		Correct:       correct,
		Points:        points,
		TotalScore:    p.Score,
		AnsweredCount: count,
		AllAnswered:   s.allAnsweredLocked(q.ID, count),
	}, nil
}

// AnsweredCount returns how many connected players have answered the
// current question.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.currentQuestionLocked()
	if !ok {
		return 0
	}
	return s.answeredCountLocked(q.ID)
}

// AllPlayersAnswered reports whether every connected player has answered
// the current question. Used by the gateway to short-circuit the timer.
func (s *Session) AllPlayersAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.currentQuestionLocked()
	if !ok {
		return false
	}
	return s.allAnsweredLocked(q.ID, s.answeredCountLocked(q.ID))
}

func (s *Session) answeredCountLocked(questionID uuid.UUID) int {
	count := 0
	for _, p := range s.players {
		if p.Status != PlayerConnected {
			continue
		}
		if _, ok := p.answers[questionID]; ok {
			count++
		}
	}
	return count
}

func (s *Session) allAnsweredLocked(questionID uuid.UUID, answered int) bool {
	connected := 0
	for _, p := range s.players {
		if p.Status == PlayerConnected {
			connected++
		}
	}
	return connected > 0 && answered >= connected
}

// Reveal ends submissions for the current question and exposes the answer
// key with every player's round result and the updated standings.
func (s *Session) Reveal() (RevealPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return RevealPayload{}, fmt.Errorf("reveal from %s: %w", s.status, ErrInvalidState)
	}
	q, _ := s.currentQuestionLocked()
	s.status = StatusShowingResults
	s.lastActivity = s.now()

	ranking := s.rankingLocked()
	rankOf := make(map[uuid.UUID]int, len(ranking))
	for _, e := range ranking {
		rankOf[e.PlayerID] = e.Rank
	}

	results := make([]RoundResult, 0, len(s.players))
	for _, p := range s.sortedPlayersLocked() {
		r := RoundResult{
			PlayerID:   p.ID,
			Nickname:   p.Nickname,
			TotalScore: p.Score,
			Rank:       rankOf[p.ID],
		}
		if a, ok := p.answers[q.ID]; ok {
			r.Answered = true
			r.Correct = a.Correct
			r.Points = a.Points
		}
		results = append(results, r)
	}

	return RevealPayload{
		QuestionID:       q.ID,
		CorrectOptionIDs: append([]uuid.UUID(nil), q.CorrectOptionIDs...),
		Results:          results,
		Ranking:          ranking,
	}, nil
}

// Advance moves from ShowingResults to the next question, or to Finished
// when the play order is exhausted. The returned payload is non-nil only
// when a next question went live.
func (s *Session) Advance() (*QuestionPayload, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusShowingResults {
		return nil, false, fmt.Errorf("advance from %s: %w", s.status, ErrInvalidState)
	}
	next := s.cursor + 1
	if next >= len(s.questions) {
		s.cursor = next
		s.status = StatusFinished
		s.lastActivity = s.now()
		return nil, true, nil
	}
	s.presentQuestionLocked(next)
	payload := s.questionPayloadLocked()
	return &payload, false, nil
}

// Cancel aborts the session. Rejected once terminal.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return fmt.Errorf("cancel from %s: %w", s.status, ErrInvalidState)
	}
	s.status = StatusCancelled
	s.lastActivity = s.now()
	return nil
}

// Ranking returns players ordered by descending score, ties broken by
// ascending join time so the earlier joiner ranks higher. The order is a
// deterministic total order.
func (s *Session) Ranking() []RankEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankingLocked()
}

func (s *Session) rankingLocked() []RankEntry {
	players := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID.String() < players[j].ID.String()
	})

	entries := make([]RankEntry, len(players))
	for i, p := range players {
		entries[i] = RankEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
		}
	}
	return entries
}

// Players returns a join-ordered snapshot of the player list.
func (s *Session) Players() []PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]PlayerView, 0, len(s.players))
	for _, p := range s.sortedPlayersLocked() {
		views = append(views, p.view())
	}
	return views
}

func (s *Session) sortedPlayersLocked() []*Player {
	players := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID.String() < players[j].ID.String()
	})
	return players
}

// PlayerCount returns the number of players in the session.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// View is the host-facing session snapshot.
type View struct {
	ID            uuid.UUID    `json:"id"`
	Code          string       `json:"code"`
	QuizID        uuid.UUID    `json:"quiz_id"`
	QuizTitle     string       `json:"quiz_title"`
	Status        Status       `json:"status"`
	QuestionIndex int          `json:"question_index"`
	QuestionCount int          `json:"question_count"`
	Players       []PlayerView `json:"players"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Snapshot returns the host-facing view of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]PlayerView, 0, len(s.players))
	for _, p := range s.sortedPlayersLocked() {
		views = append(views, p.view())
	}
	return View{
		ID:            s.ID,
		Code:          s.Code,
		QuizID:        s.QuizID,
		QuizTitle:     s.QuizTitle,
		Status:        s.status,
		QuestionIndex: s.cursor,
		QuestionCount: len(s.questions),
		Players:       views,
		CreatedAt:     s.createdAt,
	}
}

// expired reports whether the sweep should reclaim the session at now.
func (s *Session) expired(now time.Time, settings Settings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idle := now.Sub(s.lastActivity)
	switch {
	case s.status.Terminal():
		return idle > settings.FinishedGrace
	case s.status == StatusLobby:
		return idle > settings.LobbyTimeout
	default:
		return idle > settings.GameTimeout
	}
}
