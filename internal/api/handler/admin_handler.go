package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
	"github.com/minkyo/topiko/internal/repository"
	"github.com/minkyo/topiko/internal/seedsource"
	"github.com/minkyo/topiko/internal/service"
)

// AdminHandler handles operator maintenance operations: seeding, re-embedding,
// integrity audits, and explicit topic deletion.
type AdminHandler struct {
	seeder     *service.Seeder
	reembedder *service.Reembedder
	auditor    *service.Auditor
	store      service.TopicStore
	index      service.VectorIndex
	sources    map[string]seedsource.Source
	batchRuns  *repository.BatchRunRepository
	logger     *logger.Logger

	// Maintenance job state; only one job runs at a time.
	mu            sync.RWMutex
	isRunning     bool
	runningJob    string
	lastRunTime   time.Time
	lastRunStatus string
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - seeder: seeder job instance.
//   - reembedder: re-embedder job instance.
//   - auditor: integrity auditor instance.
//   - store: topic store for deletion.
//   - index: optional vector index; may be nil.
//   - sources: map of seed sources keyed by name.
//   - batchRuns: batch run repository for history; may be nil.
//   - log: logger instance.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(
	seeder *service.Seeder,
	reembedder *service.Reembedder,
	auditor *service.Auditor,
	store service.TopicStore,
	index service.VectorIndex,
	sources map[string]seedsource.Source,
	batchRuns *repository.BatchRunRepository,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		seeder:     seeder,
		reembedder: reembedder,
		auditor:    auditor,
		store:      store,
		index:      index,
		sources:    sources,
		batchRuns:  batchRuns,
		logger:     log,
	}
}

// acquire marks a job as running; returns false when another job holds the slot.
func (h *AdminHandler) acquire(job string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isRunning {
		return false
	}
	h.isRunning = true
	h.runningJob = job
	return true
}

func (h *AdminHandler) release(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isRunning = false
	h.runningJob = ""
	h.lastRunTime = time.Now()
	h.lastRunStatus = status
}

// SeedRequest represents the seed API request.
type SeedRequest struct {
	Source string `json:"source" binding:"required"`
}

// TriggerSeed handles POST /api/v1/admin/seed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerSeed(c *gin.Context) {
	ctx := c.Request.Context()

	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid seed request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, ok := h.sources[req.Source]
	if !ok {
		logger.CtxWarn(ctx, "Unknown seed source requested: source=%s, client_ip=%s", req.Source, c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source: " + req.Source})
		return
	}

	if !h.acquire("seed") {
		c.JSON(http.StatusConflict, gin.H{"error": "A maintenance job is already running"})
		return
	}

	logger.CtxInfo(ctx, "Starting seed run: source=%s, client_ip=%s", req.Source, c.ClientIP())

	// Use a background context so an HTTP timeout does not abort the run
	// halfway through the dictionary.
	stats, err := h.seeder.SeedFromSource(context.Background(), src)
	if err != nil {
		h.release("failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
		return
	}
	h.release("success")

	c.JSON(http.StatusOK, gin.H{
		"message": "Seed completed successfully",
		"stats":   stats,
	})
}

// ReembedRequest represents the re-embed API request.
type ReembedRequest struct {
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
	All    bool `json:"all"`
}

// TriggerReembed handles POST /api/v1/admin/reembed. With All set it pages
// through the whole dictionary in-process; otherwise it processes one
// offset/limit page and reports next_offset for the caller's driver loop.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerReembed(c *gin.Context) {
	ctx := c.Request.Context()

	var req ReembedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.acquire("reembed") {
		c.JSON(http.StatusConflict, gin.H{"error": "A maintenance job is already running"})
		return
	}

	logger.CtxInfo(ctx, "Starting re-embed: offset=%d, limit=%d, all=%v, client_ip=%s",
		req.Offset, req.Limit, req.All, c.ClientIP())

	var stats *service.ReembedStats
	var err error
	if req.All {
		stats, err = h.reembedder.ReembedAll(context.Background())
	} else {
		stats, err = h.reembedder.ReembedPage(context.Background(), req.Offset, req.Limit)
	}

	if err != nil {
		h.release("failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
		return
	}
	h.release("success")

	c.JSON(http.StatusOK, stats)
}

// RunAudit handles GET /api/v1/admin/audit.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) RunAudit(c *gin.Context) {
	report, err := h.auditor.Audit(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// DeleteTopic handles DELETE /api/v1/admin/topics/:id. Deletion of rows the
// auditor flags is deliberately manual; the auditor itself never deletes.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) DeleteTopic(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetByID(ctx, uint(id)); err != nil {
		if errors.Is(err, domain.ErrTopicNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Delete(ctx, uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.index != nil {
		if err := h.index.Delete(ctx, uint(id)); err != nil {
			logger.CtxWarn(ctx, "Failed to remove indexed vector: id=%d, error=%v", id, err)
		}
	}

	logger.CtxInfo(ctx, "Deleted canonical topic: id=%d, client_ip=%s", id, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// MaintenanceStatusResponse represents the maintenance job status.
type MaintenanceStatusResponse struct {
	IsRunning     bool              `json:"is_running"`
	RunningJob    string            `json:"running_job,omitempty"`
	LastRunTime   string            `json:"last_run_time,omitempty"`
	LastRunStatus string            `json:"last_run_status,omitempty"`
	RecentRuns    []domain.BatchRun `json:"recent_runs,omitempty"`
}

// GetMaintenanceStatus handles GET /api/v1/admin/status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) GetMaintenanceStatus(c *gin.Context) {
	h.mu.RLock()
	resp := MaintenanceStatusResponse{
		IsRunning:     h.isRunning,
		RunningJob:    h.runningJob,
		LastRunStatus: h.lastRunStatus,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	h.mu.RUnlock()

	if h.batchRuns != nil {
		runs, err := h.batchRuns.ListRecent(c.Request.Context(), "", 10)
		if err == nil {
			resp.RecentRuns = runs
		}
	}

	c.JSON(http.StatusOK, resp)
}
