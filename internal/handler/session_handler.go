package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/middleware"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/prepforge/prepforge-backend/internal/response"
	"github.com/prepforge/prepforge-backend/internal/service"
	"github.com/prepforge/prepforge-backend/internal/validator"
)

// SessionHandler handles the session lifecycle and answer endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	answerService  *service.AnswerService
	scoringService *service.ScoringService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	scoringService *service.ScoringService,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		answerService:  answerService,
		scoringService: scoringService,
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a new session, or resumes the caller's live session for the same
// exam and mode.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	mode, _ := model.ParseSessionMode(req.Mode)
	selection, _ := model.ParseSelectionMode(req.SelectionMode)

	result, err := h.sessionService.Start(c.Request.Context(), claims.UserID, req.ExamID, mode, service.StartOptions{
		SelectionMode:    selection,
		MaxQuestions:     req.MaxQuestions,
		ObjectiveIDs:     req.ObjectiveIDs,
		TimeLimitSeconds: req.TimeLimitSeconds,
	})
	if err != nil {
		failFromErr(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsResuming {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the session state. Accessing an over-limit test session finalizes
// it and returns the result with expired=true.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.Get(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// ListSessions godoc
// GET /api/v1/sessions?exam_id=...
// Lists the caller's session history, optionally scoped to one exam.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var examID *uuid.UUID
	if raw := c.Query("exam_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		examID = &parsed
	}

	sessions, err := h.sessionService.History(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// SubmitAnswer godoc
// PUT /api/v1/sessions/:session_id/answer
// Records an answer. Study mode returns correctness feedback; test mode
// returns a bare acknowledgment.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	feedback, err := h.answerService.SubmitAnswer(c.Request.Context(),
		sessionID, claims.UserID, req.QuestionID, req.Selected, req.TimeSpentSeconds)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, feedback)
}

// ToggleFlag godoc
// PUT /api/v1/sessions/:session_id/flag
// Marks or unmarks a question for later review.
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.ToggleFlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.answerService.ToggleFlag(c.Request.Context(),
		sessionID, claims.UserID, req.QuestionID, *req.Flagged)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// SetPosition godoc
// PUT /api/v1/sessions/:session_id/position
// Moves the session cursor to an explicit index.
func (h *SessionHandler) SetPosition(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SetPositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.answerService.SetPosition(c.Request.Context(),
		sessionID, claims.UserID, *req.Index)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// PauseSession godoc
// POST /api/v1/sessions/:session_id/pause
// Suspends a live session. Test-mode clocks keep running.
func (h *SessionHandler) PauseSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.Pause(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// SubmitSession godoc
// POST /api/v1/sessions/:session_id/submit
// Finalizes and scores a session. Resubmitting a submitted session returns
// the stored result unchanged.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	result, err := h.scoringService.Submit(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": result})
}

func (h *SessionHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}
