package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ProgressBatchSize    = 50
	ProgressBatchTimeout = 2 * time.Second
	ProgressPollTimeout  = 1 * time.Second
)

// ProgressWorker drains finalized-session events from Redis and folds them
// into the progress_snapshots table, one row per (user, day).
type ProgressWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewProgressWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "progress_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")

	batch := make([]*progressEvent, 0, ProgressBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ProgressBatchSize || time.Since(lastFlush) >= ProgressBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ProgressPollTimeout, config.WorkerKey.ProgressEventsQueue()).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev progressEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &ev)
		}
	}
}

// ----------------------------------------------------------------
// Batch Upsert Wrapper
// ----------------------------------------------------------------

func (w *ProgressWorker) flushSafe(ctx context.Context, batch []*progressEvent) {
	if len(batch) == 0 {
		return
	}

	// Collapse same-day events for one user before upserting; ON CONFLICT
	// cannot touch the same row twice within a single statement.
	merged := mergeByUserDay(batch)

	if err := w.bulkUpsertSnapshots(ctx, merged); err != nil {
		w.log.Warn().Err(err).Msg("bulk snapshot upsert failed, using fallback")

		for _, ev := range merged {
			if err := w.upsertSingle(ctx, ev); err != nil {
				w.log.Error().Err(err).Msg("upsertSingle failed — requeueing")
				raw, _ := json.Marshal(ev)
				w.rdb.RPush(ctx, config.WorkerKey.ProgressEventsQueue(), raw)
			}
		}
	}
}

func mergeByUserDay(batch []*progressEvent) []*progressEvent {
	type key struct{ user, day string }

	index := make(map[key]*progressEvent, len(batch))
	merged := make([]*progressEvent, 0, len(batch))

	for _, ev := range batch {
		k := key{ev.UserID, ev.Day}
		if existing, ok := index[k]; ok {
			existing.QuestionsAnswered += ev.QuestionsAnswered
			existing.CorrectAnswers += ev.CorrectAnswers
			existing.TimeSpentSeconds += ev.TimeSpentSeconds
			continue
		}
		clone := *ev
		index[k] = &clone
		merged = append(merged, &clone)
	}
	return merged
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ProgressWorker) bulkUpsertSnapshots(ctx context.Context, batch []*progressEvent) error {
	n := len(batch)

	userIDs := make([]uuid.UUID, 0, n)
	days := make([]time.Time, 0, n)
	questions := make([]int, 0, n)
	corrects := make([]int, 0, n)
	timeSpents := make([]int, 0, n)

	for _, ev := range batch {
		uID, err := uuid.Parse(ev.UserID)
		if err != nil {
			return err
		}
		day, err := time.Parse("2006-01-02", ev.Day)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, uID)
		days = append(days, day)
		questions = append(questions, ev.QuestionsAnswered)
		corrects = append(corrects, ev.CorrectAnswers)
		timeSpents = append(timeSpents, ev.TimeSpentSeconds)
	}

	query := `
		INSERT INTO progress_snapshots (
			user_id, day, questions_answered, correct_answers, time_spent_seconds
		)
		SELECT
			u.user_id,
			u.day,
			u.questions_answered,
			u.correct_answers,
			u.time_spent_seconds
		FROM UNNEST(
			$1::uuid[],
			$2::date[],
			$3::int[],
			$4::int[],
			$5::int[]
		) AS u (user_id, day, questions_answered, correct_answers, time_spent_seconds)
		ON CONFLICT (user_id, day) DO UPDATE
		SET questions_answered = progress_snapshots.questions_answered + EXCLUDED.questions_answered,
		    correct_answers    = progress_snapshots.correct_answers + EXCLUDED.correct_answers,
		    time_spent_seconds = progress_snapshots.time_spent_seconds + EXCLUDED.time_spent_seconds
	`

	_, err := w.pool.Exec(ctx, query, userIDs, days, questions, corrects, timeSpents)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

func (w *ProgressWorker) upsertSingle(ctx context.Context, ev *progressEvent) error {
	uID, err := uuid.Parse(ev.UserID)
	if err != nil {
		return err
	}
	day, err := time.Parse("2006-01-02", ev.Day)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO progress_snapshots (
			user_id, day, questions_answered, correct_answers, time_spent_seconds
		 ) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET questions_answered = progress_snapshots.questions_answered + EXCLUDED.questions_answered,
		     correct_answers    = progress_snapshots.correct_answers + EXCLUDED.correct_answers,
		     time_spent_seconds = progress_snapshots.time_spent_seconds + EXCLUDED.time_spent_seconds`,
		uID, day, ev.QuestionsAnswered, ev.CorrectAnswers, ev.TimeSpentSeconds,
	)
	return err
}
