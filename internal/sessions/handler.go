package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizlive/backend/internal/catalog"
	"github.com/quizlive/backend/internal/game"
	"github.com/quizlive/backend/internal/middleware"
	"github.com/quizlive/backend/internal/realtime"
	"github.com/quizlive/backend/pkg/response"
)

// Handler handles the host-side session HTTP endpoints. The realtime
// gateway handles everything in-game; this surface only creates, inspects
// and cancels sessions.
type Handler struct {
	catalog *catalog.Repository
	dir     *game.Directory
	hub     *realtime.Hub
	logger  *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(catalogRepo *catalog.Repository, dir *game.Directory, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{catalog: catalogRepo, dir: dir, hub: hub, logger: logger}
}

// Host handles POST /quizzes/:id/host: captures the quiz's question
// snapshot and creates a session under a fresh access code.
func (h *Handler) Host(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quiz id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	quiz, err := h.catalog.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		response.NotFound(c, "quiz not found")
		return
	}
	if quiz.OwnerID != userID {
		response.Forbidden(c, "not your quiz")
		return
	}

	questions, err := h.catalog.LoadForPlay(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, catalog.ErrNoPlayableQuestions) {
			response.BadRequest(c, "quiz has no playable questions")
			return
		}
		h.logger.Error("load quiz for play", zap.Error(err))
		response.Internal(c, "failed to load quiz")
		return
	}

	s, err := h.dir.CreateWithFreshCode(quiz.ID, quiz.Title, userID, questions)
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}

	h.logger.Info("session created",
		zap.String("code", s.Code),
		zap.String("quiz_id", quiz.ID.String()),
		zap.Int("questions", s.QuestionCount()),
	)
	response.Created(c, gin.H{
		"session_id":     s.ID,
		"code":           s.Code,
		"quiz_title":     s.QuizTitle,
		"question_count": s.QuestionCount(),
	})
}

// Get handles GET /sessions/:code: the host-facing session snapshot.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.OK(c, s.Snapshot())
}

// Cancel handles DELETE /sessions/:code: aborts the session and tells every
// connected client.
func (h *Handler) Cancel(c *gin.Context) {
	s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.dir.Cancel(s.Code); err != nil {
		if errors.Is(err, game.ErrInvalidState) {
			response.Conflict(c, "session already over")
			return
		}
		response.Internal(c, "failed to cancel session")
		return
	}
	h.hub.BroadcastAndPublish(s.Code, "game_cancelled", gin.H{"code": s.Code})
	response.OK(c, gin.H{"code": s.Code, "cancelled": true})
}

func (h *Handler) ownedSession(c *gin.Context) (*game.Session, bool) {
	s, err := h.dir.Get(c.Param("code"))
	if err != nil {
		response.NotFound(c, "session not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if s.HostUserID != userID {
		response.Forbidden(c, "not your session")
		return nil, false
	}
	return s, true
}
