package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/queue"
)

// HealthHandler reports liveness of the two things a submission and its
// eventual processing both depend on: the job store and the queue.
type HealthHandler struct {
	db    *gorm.DB
	queue queue.Queue
}

func NewHealthHandler(db *gorm.DB, q queue.Queue) *HealthHandler {
	return &HealthHandler{db: db, queue: q}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
		return
	}
	if err := h.queue.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "queue": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
