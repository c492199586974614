package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizlive/backend/internal/game"
)

// Gateway translates inbound connection events into game directory and
// session calls, and broadcasts the resulting views. It owns the
// per-question countdown timers; the engine itself holds no clock.
type Gateway struct {
	dir    *game.Directory
	hub    *Hub
	logger *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer // access code -> live question timer
}

// NewGateway creates the realtime gateway.
func NewGateway(dir *game.Directory, hub *Hub, logger *zap.Logger) *Gateway {
	return &Gateway{
		dir:    dir,
		hub:    hub,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// SessionExists reports whether an access code resolves to a live session.
func (g *Gateway) SessionExists(code string) bool {
	return g.dir.Exists(code)
}

type joinRequest struct {
	Nickname string `json:"nickname"`
}

type submitRequest struct {
	QuestionID   uuid.UUID   `json:"question_id"`
	OptionIDs    []uuid.UUID `json:"option_ids"`
	ResponseTime float64     `json:"response_time"`
}

// HandleConnect runs after a connection registers with the hub. An
// authenticated connection matching the session's host user is bound as the
// host connection; everyone receives the current lobby snapshot.
func (g *Gateway) HandleConnect(c *Client) {
	s, err := g.dir.Get(c.Code)
	if err != nil {
		g.sendError(c, err)
		return
	}
	if c.UserID != uuid.Nil && c.UserID == s.HostUserID {
		if err := g.dir.SetHostConnection(c.Code, c.ID); err == nil {
			c.IsHost = true
		}
	}
	g.hub.SendToClient(c.Code, c.ID, "session_state", s.Snapshot())
}

// HandleEvent dispatches one inbound message. Engine failures surface as a
// private error event; nothing is retried here.
func (g *Gateway) HandleEvent(c *Client, msg WSMessage) {
	switch msg.Event {
	case "join":
		g.handleJoin(c, msg.Data)
	case "start_game":
		g.handleStart(c)
	case "submit_answer":
		g.handleSubmit(c, msg.Data)
	case "reveal_answer":
		g.handleReveal(c)
	case "next_question":
		g.handleNext(c)
	case "cancel_game":
		g.handleCancel(c)
	case "get_ranking":
		g.handleRanking(c)
	default:
		// ignore
	}
}

func (g *Gateway) handleJoin(c *Client, data json.RawMessage) {
	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(c, game.ErrInvalidInput)
		return
	}
	p, err := g.dir.Join(c.Code, req.Nickname, c.ID)
	if err != nil {
		g.sendError(c, err)
		return
	}
	s, err := g.dir.Get(c.Code)
	if err != nil {
		g.sendError(c, err)
		return
	}
	g.hub.SendToClient(c.Code, c.ID, "joined", map[string]interface{}{
		"player":         p,
		"quiz_title":     s.QuizTitle,
		"question_count": s.QuestionCount(),
	})
	g.hub.BroadcastAndPublish(c.Code, "player_joined", p)
	g.hub.BroadcastAndPublish(c.Code, "player_list", s.Players())
}

func (g *Gateway) handleStart(c *Client) {
	s, ok := g.requireHost(c)
	if !ok {
		return
	}
	payload, err := s.Start()
	if err != nil {
		g.sendError(c, err)
		return
	}
	g.hub.BroadcastAndPublish(c.Code, "question", payload)
	g.startQuestionTimer(c.Code, payload.QuestionID, payload.TimeLimitSeconds)
}

func (g *Gateway) handleSubmit(c *Client, data json.RawMessage) {
	var req submitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(c, game.ErrInvalidInput)
		return
	}
	s, err := g.dir.Get(c.Code)
	if err != nil {
		g.sendError(c, err)
		return
	}
	p, found := s.FindPlayerByConnection(c.ID)
	if !found {
		g.sendError(c, game.ErrNotFound)
		return
	}
	outcome, err := s.RecordAnswer(p.ID, req.QuestionID, req.OptionIDs, req.ResponseTime)
	if err != nil {
		g.sendError(c, err)
		return
	}
	// Correctness and points stay private until reveal.
	g.hub.SendToClient(c.Code, c.ID, "answer_received", map[string]interface{}{
		"question_id": outcome.QuestionID,
	})
	g.hub.BroadcastAndPublish(c.Code, "answered_count", map[string]interface{}{
		"question_id": outcome.QuestionID,
		"count":       outcome.AnsweredCount,
	})
	if outcome.AllAnswered {
		g.reveal(c.Code, s)
	}
}

func (g *Gateway) handleReveal(c *Client) {
	s, ok := g.requireHost(c)
	if !ok {
		return
	}
	if err := g.reveal(c.Code, s); err != nil {
		g.sendError(c, err)
	}
}

func (g *Gateway) handleNext(c *Client) {
	s, ok := g.requireHost(c)
	if !ok {
		return
	}
	payload, finished, err := s.Advance()
	if err != nil {
		g.sendError(c, err)
		return
	}
	if finished {
		g.hub.BroadcastAndPublish(c.Code, "game_over", map[string]interface{}{
			"ranking": s.Ranking(),
		})
		return
	}
	g.hub.BroadcastAndPublish(c.Code, "question", *payload)
	g.startQuestionTimer(c.Code, payload.QuestionID, payload.TimeLimitSeconds)
}

func (g *Gateway) handleCancel(c *Client) {
	if _, ok := g.requireHost(c); !ok {
		return
	}
	g.cancelQuestionTimer(c.Code)
	if err := g.dir.Cancel(c.Code); err != nil {
		g.sendError(c, err)
		return
	}
	g.hub.BroadcastAndPublish(c.Code, "game_cancelled", map[string]interface{}{"code": c.Code})
}

func (g *Gateway) handleRanking(c *Client) {
	s, err := g.dir.Get(c.Code)
	if err != nil {
		g.sendError(c, err)
		return
	}
	g.hub.SendToClient(c.Code, c.ID, "ranking", s.Ranking())
}

// HandleDisconnect runs when a connection drops. A player is removed from
// its session outright; a host connection is merely unbound so the host can
// reattach. When the last unanswered player leaves mid-question, the
// question resolves early.
func (g *Gateway) HandleDisconnect(c *Client) {
	res, ok := g.dir.Disconnect(c.ID)
	if !ok {
		return
	}
	if res.WasHost {
		g.logger.Info("host disconnected", zap.String("code", res.Code))
		return
	}
	if !res.Removed {
		return
	}
	g.hub.BroadcastAndPublish(res.Code, "player_left", res.Player)
	s, err := g.dir.Get(res.Code)
	if err != nil {
		return
	}
	g.hub.BroadcastAndPublish(res.Code, "player_list", s.Players())
	if s.Status() == game.StatusInProgress && s.AllPlayersAnswered() {
		g.reveal(res.Code, s)
	}
}

// reveal ends the current question: cancels the countdown, transitions the
// session, broadcasts the answer key and delivers each player's round
// result privately.
func (g *Gateway) reveal(code string, s *game.Session) error {
	g.cancelQuestionTimer(code)
	payload, err := s.Reveal()
	if err != nil {
		return err
	}
	g.hub.BroadcastAndPublish(code, "reveal", map[string]interface{}{
		"question_id":        payload.QuestionID,
		"correct_option_ids": payload.CorrectOptionIDs,
	})

	connOf := make(map[uuid.UUID]string)
	for _, p := range s.Players() {
		connOf[p.ID] = p.ConnectionID
	}
	for _, r := range payload.Results {
		if conn := connOf[r.PlayerID]; conn != "" {
			g.hub.SendToClient(code, conn, "round_result", r)
		}
	}
	g.hub.BroadcastAndPublish(code, "ranking", payload.Ranking)
	return nil
}

// startQuestionTimer arms the countdown for the question just presented.
// On expiry the question is force-revealed no matter how many answered. The
// fired timer drops its own map entry, so a session removed outside the
// gateway (HTTP cancel, sweep) does not leave a stale entry behind.
func (g *Gateway) startQuestionTimer(code string, questionID uuid.UUID, seconds int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[code]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		g.mu.Lock()
		if g.timers[code] == t {
			delete(g.timers, code)
		}
		g.mu.Unlock()
		g.forceReveal(code, questionID)
	})
	g.timers[code] = t
}

func (g *Gateway) cancelQuestionTimer(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[code]; ok {
		t.Stop()
		delete(g.timers, code)
	}
}

// forceReveal fires on timer expiry. A stale fire (question already
// advanced or revealed) is a no-op.
func (g *Gateway) forceReveal(code string, questionID uuid.UUID) {
	s, err := g.dir.Get(code)
	if err != nil {
		return
	}
	current, err := s.CurrentQuestion()
	if err != nil || current.QuestionID != questionID {
		return
	}
	if err := g.reveal(code, s); err != nil {
		g.logger.Warn("force reveal failed", zap.String("code", code), zap.Error(err))
	}
}

func (g *Gateway) requireHost(c *Client) (*game.Session, bool) {
	if !c.IsHost || !g.dir.IsHost(c.ID) {
		g.sendError(c, game.ErrInvalidState)
		return nil, false
	}
	s, err := g.dir.Get(c.Code)
	if err != nil {
		g.sendError(c, err)
		return nil, false
	}
	return s, true
}

// sendError maps the engine's error taxonomy to a private client event
// without exposing internals.
func (g *Gateway) sendError(c *Client, err error) {
	code, message := "error", "something went wrong"
	switch {
	case errors.Is(err, game.ErrNotFound):
		code, message = "not_found", "unknown session or player"
	case errors.Is(err, game.ErrConflict):
		code, message = "conflict", "already taken or already submitted"
	case errors.Is(err, game.ErrInvalidState):
		code, message = "invalid_state", "not allowed right now"
	case errors.Is(err, game.ErrInvalidInput):
		code, message = "invalid_input", "invalid request"
	case errors.Is(err, game.ErrCapacity):
		code, message = "session_full", "the session is full"
	}
	g.hub.SendToClient(c.Code, c.ID, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
