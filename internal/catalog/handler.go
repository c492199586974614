package catalog

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizlive/backend/internal/middleware"
	"github.com/quizlive/backend/internal/models"
	"github.com/quizlive/backend/pkg/response"
)

// CreateQuizRequest is the body for POST /quizzes.
type CreateQuizRequest struct {
	Title       string `json:"title" binding:"required,max=120"`
	Description string `json:"description"`
}

// UpdateQuizRequest is the body for PATCH /quizzes/:id.
type UpdateQuizRequest struct {
	Title       string `json:"title" binding:"required,max=120"`
	Description string `json:"description"`
}

// OptionRequest is one answer choice in a question body.
type OptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest is the body for POST /quizzes/:id/questions.
type CreateQuestionRequest struct {
	Text             string          `json:"text" binding:"required"`
	TimeLimitSeconds int             `json:"time_limit_seconds" binding:"min=0,max=300"`
	BasePoints       int             `json:"base_points" binding:"min=0"`
	OrderNum         int             `json:"order_num"`
	Options          []OptionRequest `json:"options" binding:"required,min=2,max=8"`
}

// Handler handles quiz authoring HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger

	defaultTimeLimit  int
	defaultBasePoints int
}

// NewHandler creates a catalog handler. Defaults fill in question fields the
// author left at zero.
func NewHandler(repo *Repository, defaultTimeLimit, defaultBasePoints int, logger *zap.Logger) *Handler {
	return &Handler{
		repo:              repo,
		logger:            logger,
		defaultTimeLimit:  defaultTimeLimit,
		defaultBasePoints: defaultBasePoints,
	}
}

// CreateQuiz handles POST /quizzes.
func (h *Handler) CreateQuiz(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	quiz, err := h.repo.CreateQuiz(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.logger.Error("create quiz", zap.Error(err))
		response.Internal(c, "failed to create quiz")
		return
	}
	response.Created(c, quiz)
}

// ListQuizzes handles GET /quizzes (own quizzes only).
func (h *Handler) ListQuizzes(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list quizzes")
		return
	}
	response.OK(c, list)
}

// GetQuiz handles GET /quizzes/:id, including questions with answer keys.
func (h *Handler) GetQuiz(c *gin.Context) {
	quiz, ok := h.ownedQuiz(c)
	if !ok {
		return
	}
	questions, err := h.repo.ListQuestions(c.Request.Context(), quiz.ID)
	if err != nil {
		response.Internal(c, "failed to load questions")
		return
	}
	response.OK(c, gin.H{"quiz": quiz, "questions": questions})
}

// UpdateQuiz handles PATCH /quizzes/:id.
func (h *Handler) UpdateQuiz(c *gin.Context) {
	quiz, ok := h.ownedQuiz(c)
	if !ok {
		return
	}
	var req UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdateQuiz(c.Request.Context(), quiz.ID, req.Title, req.Description); err != nil {
		response.Internal(c, "failed to update quiz")
		return
	}
	response.OK(c, gin.H{"id": quiz.ID, "updated": true})
}

// DeleteQuiz handles DELETE /quizzes/:id.
func (h *Handler) DeleteQuiz(c *gin.Context) {
	quiz, ok := h.ownedQuiz(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteQuiz(c.Request.Context(), quiz.ID); err != nil {
		response.Internal(c, "failed to delete quiz")
		return
	}
	response.NoContent(c)
}

// CreateQuestion handles POST /quizzes/:id/questions.
func (h *Handler) CreateQuestion(c *gin.Context) {
	quiz, ok := h.ownedQuiz(c)
	if !ok {
		return
	}
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	correct := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		response.BadRequest(c, "at least one option must be correct")
		return
	}

	q := &models.Question{
		QuizID:           quiz.ID,
		Text:             req.Text,
		TimeLimitSeconds: req.TimeLimitSeconds,
		BasePoints:       req.BasePoints,
		OrderNum:         req.OrderNum,
	}
	if q.TimeLimitSeconds == 0 {
		q.TimeLimitSeconds = h.defaultTimeLimit
	}
	if q.BasePoints == 0 {
		q.BasePoints = h.defaultBasePoints
	}
	for i, o := range req.Options {
		q.Options = append(q.Options, models.Option{Text: o.Text, IsCorrect: o.IsCorrect, OrderNum: i})
	}
	if err := h.repo.CreateQuestion(c.Request.Context(), q); err != nil {
		h.logger.Error("create question", zap.Error(err))
		response.Internal(c, "failed to create question")
		return
	}
	response.Created(c, q)
}

// DeleteQuestion handles DELETE /quizzes/:id/questions/:questionId.
func (h *Handler) DeleteQuestion(c *gin.Context) {
	if _, ok := h.ownedQuiz(c); !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	if err := h.repo.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		response.Internal(c, "failed to delete question")
		return
	}
	response.NoContent(c)
}

// ownedQuiz resolves :id and enforces quiz ownership.
func (h *Handler) ownedQuiz(c *gin.Context) (*models.Quiz, bool) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quiz id")
		return nil, false
	}
	quiz, err := h.repo.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		response.NotFound(c, "quiz not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if quiz.OwnerID != userID {
		response.Forbidden(c, "not your quiz")
		return nil, false
	}
	return quiz, true
}
