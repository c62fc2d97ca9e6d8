package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepforge/prepforge-backend/internal/model"
)

// SnapshotRepository reads the daily progress rows that the progress worker
// maintains asynchronously.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// ListRange retrieves a user's snapshots within [from, to], oldest first.
func (r *SnapshotRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.ProgressSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, day, questions_answered, correct_answers, time_spent_seconds
		 FROM progress_snapshots
		 WHERE user_id = $1 AND day BETWEEN $2 AND $3
		 ORDER BY day`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []model.ProgressSnapshot
	for rows.Next() {
		var s model.ProgressSnapshot
		if err := rows.Scan(&s.UserID, &s.Day, &s.QuestionsAnswered, &s.CorrectAnswers, &s.TimeSpentSeconds); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
