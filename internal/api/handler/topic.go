package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/service"
)

// TopicHandler handles the standardize contract and the read-only topic
// endpoints.
type TopicHandler struct {
	canonicalize *service.CanonicalizeService
	store        service.TopicStore
	dimensions   int
}

// NewTopicHandler creates a new topic handler.
// Parameters:
//   - canonicalize: canonicalization service instance.
//   - store: topic store for read endpoints.
//   - dimensions: configured embedding dimensionality, reported in stats.
// Returns:
//   - *TopicHandler: initialized handler.
func NewTopicHandler(canonicalize *service.CanonicalizeService, store service.TopicStore, dimensions int) *TopicHandler {
	return &TopicHandler{
		canonicalize: canonicalize,
		store:        store,
		dimensions:   dimensions,
	}
}

// StandardizeRequest represents the standardize API request.
type StandardizeRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// Standardize handles POST /api/v1/topics/standardize.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TopicHandler) Standardize(c *gin.Context) {
	var req StandardizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.canonicalize.Standardize(c.Request.Context(), req.Topic)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Standardize failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListTopics handles GET /api/v1/topics with offset/limit pagination.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TopicHandler) ListTopics(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	topics, err := h.store.ListPage(c.Request.Context(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list topics: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": topics,
		"offset": offset,
		"limit":  limit,
	})
}

// GetTopic handles GET /api/v1/topics/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TopicHandler) GetTopic(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid topic id",
		})
		return
	}

	topic, err := h.store.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrTopicNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Topic not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get topic: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, topic)
}

// SearchTopics handles GET /api/v1/topics/search for substring search over
// canonical names.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TopicHandler) SearchTopics(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	topics, err := h.store.SearchByName(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": topics,
		"total":  len(topics),
	})
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TopicHandler) GetStats(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_topics": count,
		"dimensions":   h.dimensions,
	})
}
