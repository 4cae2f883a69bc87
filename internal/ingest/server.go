// Package ingest is a development stand-in for the analytics ingestion endpoint. It records
// batches, optionally fans them out to Kafka, and answers with scripted badge awards.
package ingest

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkbio-telemetry/backend/internal/security"
	"linkbio-telemetry/backend/internal/telemetry"
	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// BatchPath is the route batches are POSTed to.
const BatchPath = "/api/analytics/batch"

// Options wires the server's collaborators. Only Recorder is required.
type Options struct {
	Recorder *Recorder
	// Tokens, when set, makes BatchPath require a bearer token.
	Tokens *security.TokenProvider
	// Emitter receives every accepted event (e.g. a Kafka producer).
	Emitter telemetry.EventEmitter
	Now     func() time.Time
}

// Handlers serves the ingestion routes.
type Handlers struct {
	recorder *Recorder
	emitter  telemetry.EventEmitter
	nowF     func() time.Time
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts Options) *gin.Engine {
	h := &Handlers{recorder: opts.Recorder, emitter: opts.Emitter, nowF: opts.Now}
	if h.recorder == nil {
		h.recorder = NewRecorder(nil)
	}
	if h.nowF == nil {
		h.nowF = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", h.Health)

	api := r.Group("/api/analytics")
	if opts.Tokens != nil {
		api.Use(AuthRequired(opts.Tokens))
	}
	api.POST("/batch", h.ReceiveBatch)
	api.GET("/batches", h.ListBatches)
	return r
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReceiveBatch accepts one Batch and answers with a BatchResult.
func (h *Handlers) ReceiveBatch(c *gin.Context) {
	var batch domain.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Printf("ingest: bind batch: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	for i, ev := range batch.Events {
		if err := ev.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "index": i})
			return
		}
	}

	id := uuid.NewString()
	awarded, total := h.recorder.Record(Received{ID: id, ReceivedAt: h.nowF().UTC(), Batch: batch})
	telemetry.EmitAsync(h.emitter, c.Request.Context(), batch.Events...)

	res := domain.BatchResult{Success: true}
	if len(awarded) > 0 {
		res.Data = &domain.ResultData{BadgeUpdates: &domain.BadgeUpdates{NewBadges: awarded, TotalBadges: total}}
		log.Printf("ingest: batch %s awarded %d badge(s)", id, len(awarded))
	}
	c.Header("X-Batch-ID", id)
	c.JSON(http.StatusOK, res)
}

type batchSummary struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	SessionID  string    `json:"sessionId"`
	Events     int       `json:"events"`
}

// ListBatches returns a summary of every accepted batch.
func (h *Handlers) ListBatches(c *gin.Context) {
	received := h.recorder.Batches()
	out := make([]batchSummary, 0, len(received))
	for _, r := range received {
		out = append(out, batchSummary{
			ID:         r.ID,
			ReceivedAt: r.ReceivedAt,
			SessionID:  r.Batch.SessionID,
			Events:     len(r.Batch.Events),
		})
	}
	c.JSON(http.StatusOK, gin.H{"batches": out, "events": h.recorder.Events()})
}
