package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// catalogCacheTTL bounds staleness of the read-mostly exam catalog.
const catalogCacheTTL = 5 * time.Minute

// ExamService serves the exam catalog with Redis cache-aside reads.
type ExamService struct {
	exams ExamStore
	bank  QuestionBank
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, bank QuestionBank, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams: exams,
		bank:  bank,
		rdb:   rdb,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// List returns the active exam catalog.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	key := config.CacheKey.ExamCatalogKey()

	var exams []model.Exam
	if found, err := s.cacheGet(ctx, key, &exams); err == nil && found {
		return exams, nil
	}

	exams, err := s.exams.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	s.cacheSet(ctx, key, exams)
	return exams, nil
}

// GetByID returns a single exam, or ErrExamNotFound.
func (s *ExamService) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamKey(examID.String())

	var exam model.Exam
	if found, err := s.cacheGet(ctx, key, &exam); err == nil && found {
		return &exam, nil
	}

	stored, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if stored == nil {
		return nil, ErrExamNotFound
	}

	s.cacheSet(ctx, key, stored)
	return stored, nil
}

// Objectives returns an exam's objectives.
func (s *ExamService) Objectives(ctx context.Context, examID uuid.UUID) ([]model.Objective, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	key := config.CacheKey.ExamObjectivesKey(examID.String())

	var objectives []model.Objective
	if found, err := s.cacheGet(ctx, key, &objectives); err == nil && found {
		return objectives, nil
	}

	objectives, err := s.bank.ListObjectives(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	if objectives == nil {
		objectives = []model.Objective{}
	}

	s.cacheSet(ctx, key, objectives)
	return objectives, nil
}

// Prewarm loads the catalog caches on startup so the first burst of traffic
// never stampedes PostgreSQL.
func (s *ExamService) Prewarm(ctx context.Context) error {
	exams, err := s.List(ctx)
	if err != nil {
		return err
	}
	for i := range exams {
		if _, err := s.Objectives(ctx, exams[i].ID); err != nil {
			s.log.Warn().Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm objectives cache, skipping")
		}
	}
	s.log.Info().Int("exams", len(exams)).Msg("Catalog caches warmed")
	return nil
}

func (s *ExamService) cacheGet(ctx context.Context, key string, dst interface{}) (bool, error) {
	if s.rdb == nil {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ExamService) cacheSet(ctx context.Context, key string, v interface{}) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, catalogCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
