package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/nodues/internal/app/auth"
)

// Handler for WebSocket connections
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger.With().Str("component", "ws-handler").Logger(),
	}
}

// HandleConnection godoc
// @Summary Subscribe to a student's clearance events
// @Description Upgrades the connection to a WebSocket that receives workflow events (submission, unit decisions, queries, final decision) for one student. Browsers pass the token as the `token` query parameter.
// @Tags websocket
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param token query string false "Access token when headers cannot be set"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} map[string]string "Unauthorized - Invalid or missing token"
// @Failure 403 {object} map[string]string "Forbidden - Not allowed to follow this student"
// @Router /ws/students/{studentId} [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	studentID := c.Param("studentId")

	actor, ok := appauth.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := appauth.AuthorizeStudent(actor, studentID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Error().Err(err).Str("studentID", studentID).Msg("Failed to upgrade connection")
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		studentID: studentID,
		subject:   actor.Subject,
		logger:    h.logger,
	}
	if !h.hub.attach(client) {
		h.logger.Warn().Str("studentID", studentID).Msg("Hub stopped, closing connection")
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
