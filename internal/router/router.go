package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/handler"
	"github.com/prepforge/prepforge-backend/internal/middleware"
	"github.com/prepforge/prepforge-backend/internal/response"
	"github.com/prepforge/prepforge-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam      *handler.ExamHandler
	Session   *handler.SessionHandler
	Analytics *handler.AnalyticsHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for write-heavy session routes (120 requests per minute
	// per IP; answering is one request per question).
	sessionLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Catalog Group (Public, Edge-Cacheable) ─────────────────────
	catalogAPI := router.Group("/api/v1/exams")
	catalogAPI.Use(middleware.CacheControl(60))
	{
		catalogAPI.GET("", handlers.Exam.ListExams)
		catalogAPI.GET("/:exam_id", handlers.Exam.GetExam)
		catalogAPI.GET("/:exam_id/objectives", handlers.Exam.ListObjectives)
	}

	// ─── 2. Session Group (JWT) ────────────────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	sessionAPI.Use(
		middleware.RequireUserJWT(authService),
		sessionLimiter.Middleware(),
	)
	{
		sessionAPI.POST("", handlers.Session.StartSession)
		sessionAPI.GET("", handlers.Session.ListSessions)
		sessionAPI.GET("/:session_id", handlers.Session.GetSession)
		sessionAPI.PUT("/:session_id/answer", handlers.Session.SubmitAnswer)
		sessionAPI.PUT("/:session_id/flag", handlers.Session.ToggleFlag)
		sessionAPI.PUT("/:session_id/position", handlers.Session.SetPosition)
		sessionAPI.POST("/:session_id/pause", handlers.Session.PauseSession)
		sessionAPI.POST("/:session_id/submit", handlers.Session.SubmitSession)
	}

	// ─── 3. Analytics Group (JWT) ──────────────────────────────────────
	analyticsAPI := router.Group("/api/v1/analytics")
	analyticsAPI.Use(middleware.RequireUserJWT(authService))
	{
		analyticsAPI.GET("/weak-areas", handlers.Analytics.WeakAreas)
		analyticsAPI.POST("/study-plan", handlers.Analytics.StudyPlan)
		analyticsAPI.GET("/overview", handlers.Analytics.Overview)
	}

	// ─── 4. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/sessions/:session_id/timer", handlers.WS.SessionTimerStream)
	}

	return router
}
