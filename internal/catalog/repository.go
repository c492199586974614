package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizlive/backend/internal/game"
	"github.com/quizlive/backend/internal/models"
)

// ErrNoPlayableQuestions means a quiz has no question with a correct option
// and cannot be hosted.
var ErrNoPlayableQuestions = errors.New("quiz has no playable questions")

// Repository handles quiz, question and option persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateQuiz inserts a new quiz.
func (r *Repository) CreateQuiz(ctx context.Context, ownerID uuid.UUID, title, description string) (*models.Quiz, error) {
	const query = `INSERT INTO quizzes (id, owner_id, title, description)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, owner_id, title, description, created_at, updated_at`
	var q models.Quiz
	err := r.pool.QueryRow(ctx, query, ownerID, title, description).
		Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuiz returns a quiz by ID.
func (r *Repository) GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	const query = `SELECT id, owner_id, title, COALESCE(description,''), created_at, updated_at
		FROM quizzes WHERE id = $1`
	var q models.Quiz
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByOwner returns all quizzes owned by a user, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Quiz, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, title, COALESCE(description,''), created_at, updated_at
		FROM quizzes WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Quiz
	for rows.Next() {
		var q models.Quiz
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// UpdateQuiz updates title and description.
func (r *Repository) UpdateQuiz(ctx context.Context, id uuid.UUID, title, description string) error {
	const query = `UPDATE quizzes SET title = $2, description = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, title, description)
	return err
}

// DeleteQuiz removes a quiz and its questions (cascade).
func (r *Repository) DeleteQuiz(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

// CreateQuestion inserts a question with its options in one transaction.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertQuestion = `INSERT INTO questions (id, quiz_id, text, time_limit_seconds, base_points, order_num)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertQuestion, q.QuizID, q.Text, q.TimeLimitSeconds, q.BasePoints, q.OrderNum).
		Scan(&q.ID, &q.CreatedAt); err != nil {
		return err
	}

	const insertOption = `INSERT INTO question_options (id, question_id, text, is_correct, order_num)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id`
	for i := range q.Options {
		opt := &q.Options[i]
		opt.QuestionID = q.ID
		if err := tx.QueryRow(ctx, insertOption, q.ID, opt.Text, opt.IsCorrect, opt.OrderNum).Scan(&opt.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListQuestions returns a quiz's questions with options, in play order.
func (r *Repository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, quiz_id, text, time_limit_seconds, base_points, order_num, created_at
		FROM questions WHERE quiz_id = $1 ORDER BY order_num, created_at`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.TimeLimitSeconds, &q.BasePoints, &q.OrderNum, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		opts, err := r.listOptions(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

func (r *Repository) listOptions(ctx context.Context, questionID uuid.UUID) ([]models.Option, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, question_id, text, is_correct, order_num
		FROM question_options WHERE question_id = $1 ORDER BY order_num`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.OrderNum); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// DeleteQuestion removes a question and its options (cascade).
func (r *Repository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// LoadForPlay resolves the ordered question snapshot the game engine
// captures at session creation: content, options and answer keys. Questions
// without a correct option are skipped; a playable quiz must keep at least
// one.
func (r *Repository) LoadForPlay(ctx context.Context, quizID uuid.UUID) ([]game.Question, error) {
	questions, err := r.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]game.Question, 0, len(questions))
	for _, q := range questions {
		gq := game.Question{
			ID:               q.ID,
			Text:             q.Text,
			TimeLimitSeconds: q.TimeLimitSeconds,
			BasePoints:       q.BasePoints,
		}
		for _, o := range q.Options {
			gq.Options = append(gq.Options, game.Option{ID: o.ID, Text: o.Text})
			if o.IsCorrect {
				gq.CorrectOptionIDs = append(gq.CorrectOptionIDs, o.ID)
			}
		}
		if len(gq.CorrectOptionIDs) == 0 {
			continue
		}
		out = append(out, gq)
	}
	if len(out) == 0 {
		return nil, ErrNoPlayableQuestions
	}
	return out, nil
}
