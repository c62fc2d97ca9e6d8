package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepforge/prepforge-backend/internal/middleware"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/prepforge/prepforge-backend/internal/response"
	"github.com/prepforge/prepforge-backend/internal/service"
	"github.com/prepforge/prepforge-backend/internal/validator"
)

// AnalyticsHandler serves performance aggregation endpoints.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// WeakAreas godoc
// GET /api/v1/analytics/weak-areas
// Returns the caller's weak/strong area breakdown with a focus plan.
func (h *AnalyticsHandler) WeakAreas(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	report, err := h.analyticsService.WeakAreas(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// StudyPlan godoc
// POST /api/v1/analytics/study-plan
// Generates a per-objective study schedule toward a target score.
func (h *AnalyticsHandler) StudyPlan(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StudyPlanRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	plan, err := h.analyticsService.StudyPlan(c.Request.Context(),
		claims.UserID, req.ExamID, req.TargetScore, req.DailyHours)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, plan)
}

// Overview godoc
// GET /api/v1/analytics/overview
// Returns the dashboard summary: per-exam progress, trends, weekly stats.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	overview, err := h.analyticsService.Overview(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromErr(c, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}
