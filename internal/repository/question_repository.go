package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepforge/prepforge-backend/internal/model"
)

// QuestionRepository handles question and objective data access. It is the
// concrete question bank behind the session engine.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, exam_id, objective_id, text, options, correct_answers,
	explanation, order_num, active`

// ListActive retrieves the active questions of an exam in authoring order,
// optionally restricted to the given objectives.
func (r *QuestionRepository) ListActive(ctx context.Context, examID uuid.UUID, objectiveIDs []uuid.UUID) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE exam_id = $1 AND active`
	args := []any{examID}
	if len(objectiveIDs) > 0 {
		query += ` AND objective_id = ANY($2)`
		args = append(args, objectiveIDs)
	}
	query += ` ORDER BY order_num`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// GetByIDs retrieves questions by id. Missing ids are silently absent from
// the result; callers decide whether that matters.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// ListObjectives retrieves all objectives for an exam.
func (r *QuestionRepository) ListObjectives(ctx context.Context, examID uuid.UUID) ([]model.Objective, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, title, weight FROM objectives WHERE exam_id = $1 ORDER BY title`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objectives []model.Objective
	for rows.Next() {
		var o model.Objective
		if err := rows.Scan(&o.ID, &o.ExamID, &o.Title, &o.Weight); err != nil {
			return nil, err
		}
		objectives = append(objectives, o)
	}
	return objectives, rows.Err()
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.ObjectiveID, &q.Text, &q.Options,
			&q.CorrectAnswers, &q.Explanation, &q.OrderNum, &q.Active); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
