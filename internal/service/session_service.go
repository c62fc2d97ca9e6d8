package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/rs/zerolog"
)

// StartOptions configures a new session.
type StartOptions struct {
	SelectionMode    model.SelectionMode
	MaxQuestions     int
	ObjectiveIDs     []uuid.UUID // Study mode only
	TimeLimitSeconds int         // Test mode only; 0 means exam default
}

// StartResult is the outcome of Start: the session plus the question payload
// in session order. Test-mode payloads never contain correct answers.
type StartResult struct {
	Session    *model.Session       `json:"session"`
	Questions  []model.QuestionView `json:"questions"`
	IsResuming bool                 `json:"is_resuming"`
}

// SessionState is the outcome of Get: either a live session or, when lazy
// expiry fired on this access, the finalized result.
type SessionState struct {
	Session          *model.Session       `json:"session"`
	Questions        []model.QuestionView `json:"questions"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Expired          bool                 `json:"expired"`
}

// SessionService owns session creation, resumption, and question-order
// selection strategies.
type SessionService struct {
	store     SessionStore
	bank      QuestionBank
	exams     ExamStore
	scoring   *ScoringService
	analytics *AnalyticsService
	log       zerolog.Logger

	maxQuestions int
	now          func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	store SessionStore,
	bank QuestionBank,
	exams ExamStore,
	scoring *ScoringService,
	analytics *AnalyticsService,
	maxQuestions int,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		store:        store,
		bank:         bank,
		exams:        exams,
		scoring:      scoring,
		analytics:    analytics,
		maxQuestions: maxQuestions,
		log:          log.With().Str("component", "session_service").Logger(),
		now:          time.Now,
	}
}

// Start returns the caller's existing live session for (exam, mode), or
// builds a question order and creates a new one. The question order is never
// recomputed for a resumed session.
func (s *SessionService) Start(ctx context.Context, userID, examID uuid.UUID, mode model.SessionMode, opts StartOptions) (*StartResult, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if !exam.Active {
		return nil, ErrExamInactive
	}

	existing, err := s.store.GetActive(ctx, userID, examID, mode)
	if err != nil {
		return nil, fmt.Errorf("lookup active session: %w", err)
	}
	if existing != nil {
		// A live test session that ran out of time is finalized here, then
		// a fresh session is built below.
		if finalized, expired, ferr := s.scoring.ExpireIfDue(ctx, existing); ferr != nil {
			return nil, ferr
		} else if !expired {
			questions, qerr := s.payloadFor(ctx, existing)
			if qerr != nil {
				return nil, qerr
			}
			return &StartResult{Session: existing, Questions: questions, IsResuming: true}, nil
		} else {
			s.log.Info().
				Str("session_id", finalized.ID.String()).
				Msg("Expired session finalized on start")
		}
	}

	session, err := s.build(ctx, userID, exam, mode, opts)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		// Concurrent start won the race; return the winner's session.
		winner, ferr := s.store.GetActive(ctx, userID, examID, mode)
		if ferr != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", ferr)
		}
		if winner == nil {
			return nil, ErrSessionNotFound
		}
		questions, qerr := s.payloadFor(ctx, winner)
		if qerr != nil {
			return nil, qerr
		}
		return &StartResult{Session: winner, Questions: questions, IsResuming: true}, nil
	}

	questions, err := s.payloadFor(ctx, session)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("mode", string(mode)).
		Str("selection", string(session.SelectionMode)).
		Int("questions", len(session.QuestionOrder)).
		Msg("Session started")

	return &StartResult{Session: session, Questions: questions}, nil
}

// Get loads a session for its owner, reactivating a paused session and
// running the lazy expiry check. When expiry fires, the finalized result is
// returned instead of a live session.
func (s *SessionService) Get(ctx context.Context, sessionID, callerID uuid.UUID) (*SessionState, error) {
	sess, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}

	if sess.Status.Terminal() {
		return &SessionState{Session: sess}, nil
	}

	if finalized, expired, err := s.scoring.ExpireIfDue(ctx, sess); err != nil {
		return nil, err
	} else if expired {
		return &SessionState{Session: finalized, Expired: true}, nil
	}

	if sess.Status == model.StatusPaused {
		sess.Status = model.StatusActive
		if err := s.store.Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("resume session: %w", err)
		}
	}

	questions, err := s.payloadFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	return &SessionState{
		Session:          sess,
		Questions:        questions,
		RemainingSeconds: sess.RemainingSeconds(s.now()),
	}, nil
}

// Pause suspends a live session. The test-mode clock keeps running; pause is
// bookkeeping, not a timer stop.
func (s *SessionService) Pause(ctx context.Context, sessionID, callerID uuid.UUID) (*model.Session, error) {
	sess, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, ErrSessionFinalized
	}

	if finalized, expired, err := s.scoring.ExpireIfDue(ctx, sess); err != nil {
		return nil, err
	} else if expired {
		return nil, &ExpiredError{Result: finalized}
	}

	if sess.Status != model.StatusPaused {
		sess.Status = model.StatusPaused
		if err := s.store.Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("pause session: %w", err)
		}
	}
	return sess, nil
}

// History lists the caller's sessions, optionally scoped to one exam.
func (s *SessionService) History(ctx context.Context, userID uuid.UUID, examID *uuid.UUID) ([]model.Session, error) {
	if examID != nil {
		return s.store.ListByUserAndExam(ctx, userID, *examID)
	}
	return s.store.ListByUser(ctx, userID)
}

// ─── internals ──────────────────────────────────────────────────────

func (s *SessionService) loadOwned(ctx context.Context, sessionID, callerID uuid.UUID) (*model.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != callerID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

// build assembles a new session with its immutable question order.
func (s *SessionService) build(ctx context.Context, userID uuid.UUID, exam *model.Exam, mode model.SessionMode, opts StartOptions) (*model.Session, error) {
	var (
		order     []uuid.UUID
		selection model.SelectionMode
		err       error
	)

	if mode == model.ModeTest {
		// Test mode ignores the selection strategy: always a filtered,
		// uniformly shuffled pool.
		selection = model.SelectionRandom
		order, err = s.shuffledPool(ctx, exam.ID, opts.ObjectiveIDs)
	} else {
		selection = opts.SelectionMode
		if selection == "" {
			selection = model.SelectionSequential
		}
		order, err = s.studyPool(ctx, userID, exam.ID, selection, opts.ObjectiveIDs)
	}
	if err != nil {
		return nil, err
	}

	limit := opts.MaxQuestions
	if limit <= 0 || limit > s.maxQuestions {
		limit = s.maxQuestions
	}
	if len(order) > limit {
		order = order[:limit]
	}
	if len(order) == 0 {
		return nil, ErrEmptyPool
	}

	sess := &model.Session{
		ID:            uuid.New(),
		UserID:        userID,
		ExamID:        exam.ID,
		Mode:          mode,
		SelectionMode: selection,
		Status:        model.StatusActive,
		QuestionOrder: order,
		Answers:       map[uuid.UUID]model.Answer{},
		Flags:         map[uuid.UUID]bool{},
		StartedAt:     s.now(),
		PassingScore:  exam.PassingScore,
	}

	if mode == model.ModeTest {
		limitSec := opts.TimeLimitSeconds
		if limitSec <= 0 {
			limitSec = exam.DefaultTimeLimitSeconds
		}
		sess.TimeLimitSeconds = &limitSec
	}

	return sess, nil
}

// shuffledPool returns all active exam questions in a uniform random
// permutation (Fisher–Yates via rand.Shuffle).
func (s *SessionService) shuffledPool(ctx context.Context, examID uuid.UUID, objectiveIDs []uuid.UUID) ([]uuid.UUID, error) {
	questions, err := s.bank.ListActive(ctx, examID, objectiveIDs)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	order := questionIDs(questions)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order, nil
}

// studyPool builds the question order for a study session according to the
// selection mode.
func (s *SessionService) studyPool(ctx context.Context, userID, examID uuid.UUID, selection model.SelectionMode, objectiveIDs []uuid.UUID) ([]uuid.UUID, error) {
	switch selection {
	case model.SelectionSequential:
		questions, err := s.bank.ListActive(ctx, examID, objectiveIDs)
		if err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
		return questionIDs(questions), nil

	case model.SelectionRandom:
		return s.shuffledPool(ctx, examID, objectiveIDs)

	case model.SelectionFlagged:
		return s.historyPool(ctx, userID, examID, pickFlagged)

	case model.SelectionIncorrect:
		return s.historyPool(ctx, userID, examID, pickIncorrect)

	case model.SelectionReview:
		return s.historyPool(ctx, userID, examID, pickAnswered)

	case model.SelectionWeakAreas:
		weakIDs, err := s.analytics.WeakObjectiveIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(weakIDs) == 0 {
			return nil, nil
		}
		questions, err := s.bank.ListActive(ctx, examID, weakIDs)
		if err != nil {
			return nil, fmt.Errorf("list weak-area questions: %w", err)
		}
		return questionIDs(questions), nil

	default:
		return nil, fmt.Errorf("unknown selection mode %q", selection)
	}
}

// historyEntry is a question surfaced from the user's prior sessions,
// stamped with the most recent time it qualified.
type historyEntry struct {
	questionID uuid.UUID
	seenAt     time.Time
}

// historyPool scans the user's prior sessions for this exam and collects
// question ids via pick, most recently touched first. Only questions still
// active in the bank survive.
func (s *SessionService) historyPool(ctx context.Context, userID, examID uuid.UUID, pick func(*model.Session) []historyEntry) ([]uuid.UUID, error) {
	sessions, err := s.store.ListByUserAndExam(ctx, userID, examID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	latest := make(map[uuid.UUID]time.Time)
	for i := range sessions {
		for _, entry := range pick(&sessions[i]) {
			if prev, ok := latest[entry.questionID]; !ok || entry.seenAt.After(prev) {
				latest[entry.questionID] = entry.seenAt
			}
		}
	}
	if len(latest) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return latest[ids[i]].After(latest[ids[j]])
	})

	// Drop questions that were deactivated or deleted since.
	questions, err := s.bank.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve history questions: %w", err)
	}
	alive := make(map[uuid.UUID]bool, len(questions))
	for i := range questions {
		alive[questions[i].ID] = questions[i].Active
	}
	order := ids[:0]
	for _, id := range ids {
		if alive[id] {
			order = append(order, id)
		}
	}
	return order, nil
}

func pickFlagged(sess *model.Session) []historyEntry {
	var entries []historyEntry
	for id, flagged := range sess.Flags {
		if flagged {
			entries = append(entries, historyEntry{questionID: id, seenAt: sess.StartedAt})
		}
	}
	return entries
}

func pickIncorrect(sess *model.Session) []historyEntry {
	var entries []historyEntry
	for id, ans := range sess.Answers {
		if !ans.IsCorrect {
			entries = append(entries, historyEntry{questionID: id, seenAt: ans.AnsweredAt})
		}
	}
	return entries
}

func pickAnswered(sess *model.Session) []historyEntry {
	entries := make([]historyEntry, 0, len(sess.Answers))
	for id, ans := range sess.Answers {
		entries = append(entries, historyEntry{questionID: id, seenAt: ans.AnsweredAt})
	}
	return entries
}

// payloadFor resolves a session's question order into client payloads,
// preserving order. Test-mode payloads are stripped of correct answers and
// explanations before leaving the engine.
func (s *SessionService) payloadFor(ctx context.Context, sess *model.Session) ([]model.QuestionView, error) {
	questions, err := s.bank.GetByIDs(ctx, sess.QuestionOrder)
	if err != nil {
		return nil, fmt.Errorf("load session questions: %w", err)
	}

	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	includeAnswers := sess.Mode == model.ModeStudy
	views := make([]model.QuestionView, 0, len(sess.QuestionOrder))
	for _, id := range sess.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			continue // Question removed from the bank after session creation
		}
		views = append(views, q.View(includeAnswers))
	}
	return views, nil
}

func questionIDs(questions []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}
	return ids
}
