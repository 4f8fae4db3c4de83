// Package api is the thin HTTP entrypoint wiring pkg/roleplay to the outside
// world (spec §6: "exposed only via in-process calls and a thin HTTP router
// that is out of scope"). Grounded on the teacher's pkg/api/server.go +
// handler_chat.go gin router/handler shape, reduced to the single
// demonstration route this spec's core needs; auth, websockets, and the
// dashboard are named external collaborators and are not reimplemented here.
package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roleplay/memoryruntime/pkg/apperrors"
	"github.com/roleplay/memoryruntime/pkg/database"
	"github.com/roleplay/memoryruntime/pkg/queue"
	"github.com/roleplay/memoryruntime/pkg/roleplay"
)

// Server is the gin-backed HTTP entrypoint over one Orchestrator.
type Server struct {
	router *gin.Engine
}

// NewServer builds the router: POST a turn, and a health/stats endpoint
// that reports both the relational pool's health (pkg/database.Health,
// the SPEC_FULL "Health/readiness" supplement) and the background memory
// worker's queue depth.
func NewServer(db *sql.DB, orchestrator *roleplay.Orchestrator, worker *queue.Worker) *Server {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		dbHealth, err := database.Health(c.Request.Context(), db)
		stats := worker.Stats()
		status := http.StatusOK
		if err != nil {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":   dbHealth.Status,
			"database": dbHealth,
			"memory_worker": gin.H{
				"status":         stats.Status,
				"jobs_processed": stats.JobsProcessed,
				"jobs_dropped":   stats.JobsDropped,
				"queue_depth":    stats.QueueDepth,
			},
		})
	})

	router.POST("/sessions/:id/messages", func(c *gin.Context) {
		var body struct {
			UserID      string `json:"user_id" binding:"required"`
			Content     string `json:"content" binding:"required"`
			ContentType string `json:"content_type"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(apperrors.BadInput)})
			return
		}
		if body.ContentType == "" {
			body.ContentType = "text"
		}

		resp, err := orchestrator.Handle(c.Request.Context(), roleplay.Request{
			SessionID:   c.Param("id"),
			UserID:      body.UserID,
			Content:     body.Content,
			ContentType: body.ContentType,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": string(apperrors.Classify(err))})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"fragments": resp.Message.Fragments,
			"options":   resp.Message.Options,
			"summary":   resp.Message.Summary,
			"usage": gin.H{
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			},
		})
	})

	return &Server{router: router}
}

// Run starts the HTTP server; it blocks until the listener stops.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// statusFor maps the user-facing error taxonomy of spec §7 to an HTTP
// status code, keeping internal error text out of the response body.
func statusFor(err error) int {
	switch apperrors.Classify(err) {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.BadInput:
		return http.StatusBadRequest
	case apperrors.Unauthorized:
		return http.StatusUnauthorized
	case apperrors.Forbidden:
		return http.StatusForbidden
	case apperrors.InsufficientPoints:
		return http.StatusPaymentRequired
	case apperrors.ModelRefusal:
		return http.StatusUnprocessableEntity
	case apperrors.TemporaryFailure:
		return http.StatusServiceUnavailable
	default:
		if errors.Is(err, apperrors.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}
}
