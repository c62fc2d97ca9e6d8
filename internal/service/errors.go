package service

import (
	"errors"

	"github.com/prepforge/prepforge-backend/internal/model"
)

// Domain errors surfaced to handlers. Business-rule violations are raised as
// typed errors and mapped to response codes verbatim, never downgraded to a
// generic failure.
var (
	ErrExamNotFound         = errors.New("exam not found")
	ErrExamInactive         = errors.New("exam is not active")
	ErrSessionNotFound      = errors.New("session not found")
	ErrNotSessionOwner      = errors.New("session does not belong to caller")
	ErrSessionFinalized     = errors.New("session is already finalized")
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrIndexOutOfRange      = errors.New("question index out of range")
	ErrEmptyPool            = errors.New("no questions match the requested selection")
)

// ExpiredError reports that a test session hit its time limit during the
// current call. It is a forced transition, not a plain failure: the engine
// auto-submits first and attaches the finalized result so the caller can
// show it alongside the explanatory message.
type ExpiredError struct {
	Result *model.Session
}

func (e *ExpiredError) Error() string {
	return "test session time limit exceeded"
}
