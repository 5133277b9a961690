package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grandstay/hotel-booking-backend/internal/locking"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
	"github.com/grandstay/hotel-booking-backend/internal/services"
)

// OpsHandler exposes operational visibility endpoints
type OpsHandler struct {
	locks       *locking.LockManager
	router      *payment.Router
	maintenance *services.MaintenanceService
}

// NewOpsHandler creates a new OpsHandler
func NewOpsHandler(locks *locking.LockManager, router *payment.Router, maintenance *services.MaintenanceService) *OpsHandler {
	return &OpsHandler{locks: locks, router: router, maintenance: maintenance}
}

// Health is the liveness endpoint
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GatewayStatuses reports per-gateway circuit state
func (h *OpsHandler) GatewayStatuses(c *gin.Context) {
	statuses := h.router.Statuses()
	c.JSON(http.StatusOK, gin.H{"gateways": statuses, "count": len(statuses)})
}

// HeldLocks reports rooms whose lock is currently held and by what operation
func (h *OpsHandler) HeldLocks(c *gin.Context) {
	held := h.locks.Snapshot()
	c.JSON(http.StatusOK, gin.H{"held": held, "count": len(held)})
}

// Jobs reports the scheduled maintenance jobs
func (h *OpsHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.maintenance.JobStatus())
}
