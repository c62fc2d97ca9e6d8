package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepforge/prepforge-backend/internal/middleware"
	"github.com/prepforge/prepforge-backend/internal/service"
	ws "github.com/prepforge/prepforge-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the authoritative session timer.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionTimerStream godoc
// WS /ws/v1/sessions/:session_id/timer
// Streams one tick per second with the server-side remaining time for a
// timed session. When the limit is hit, the session is finalized and an
// expired event closes the stream. Clients never trust their local clock.
func (h *WSHandler) SessionTimerStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	state, err := h.sessionService.Get(c.Request.Context(), sessionID, claims.UserID)
	if err != nil || state.Expired || state.Session.Status.Terminal() {
		ws.WriteError(conn, "no live session to time")
		return
	}
	if state.Session.TimeLimitSeconds == nil {
		ws.WriteError(conn, "session has no time limit")
		return
	}

	wsLog := h.log.With().
		Str("user_id", claims.UserID.String()).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Timer stream connected")

	// Reader goroutine: consume pings, surface disconnects.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	sess := state.Session
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Timer stream closed by client")
			return

		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}

		case <-ticker.C:
			remaining := sess.RemainingSeconds(time.Now())
			if remaining <= 0 {
				// Reload through the service so lazy expiry finalizes the
				// session before the client is told.
				if _, err := h.sessionService.Get(c.Request.Context(), sessionID, claims.UserID); err != nil {
					wsLog.Error().Err(err).Msg("Expiry finalization failed")
				}
				ws.WriteTyped(conn, ws.ExpiredResponse{
					Event:     ws.EventExpired,
					SessionID: sessionID.String(),
				})
				wsLog.Info().Msg("Session expired, closing timer stream")
				return
			}
			if err := ws.WriteTyped(conn, ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: remaining,
			}); err != nil {
				return
			}
		}
	}
}
