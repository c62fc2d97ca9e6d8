package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// progressEvent is the wire format on the progress queue. Day is a calendar
// date in UTC so the worker can bucket events without re-deriving it.
type progressEvent struct {
	UserID            string `json:"user_id"`
	Day               string `json:"day"` // YYYY-MM-DD
	QuestionsAnswered int    `json:"questions_answered"`
	CorrectAnswers    int    `json:"correct_answers"`
	TimeSpentSeconds  int    `json:"time_spent_seconds"`
}

// ProgressPublisher pushes finalized-session events onto the Redis queue
// drained by the ProgressWorker. It satisfies the scorer's queue contract.
type ProgressPublisher struct {
	rdb *redis.Client
}

// NewProgressPublisher creates a new ProgressPublisher.
func NewProgressPublisher(rdb *redis.Client) *ProgressPublisher {
	return &ProgressPublisher{rdb: rdb}
}

// EnqueueFinalized publishes one finalized session. Callers treat failures
// as non-fatal; the snapshot table is an aggregate, not the ledger.
func (p *ProgressPublisher) EnqueueFinalized(ctx context.Context, s *model.Session) error {
	if p.rdb == nil {
		return nil
	}

	finishedAt := time.Now().UTC()
	if s.SubmittedAt != nil {
		finishedAt = s.SubmittedAt.UTC()
	}

	ev := progressEvent{
		UserID:            s.UserID.String(),
		Day:               finishedAt.Format("2006-01-02"),
		QuestionsAnswered: len(s.Answers),
		CorrectAnswers:    s.CorrectCount,
		TimeSpentSeconds:  s.TimeSpentSeconds,
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	return p.rdb.RPush(ctx, config.WorkerKey.ProgressEventsQueue(), raw).Err()
}
