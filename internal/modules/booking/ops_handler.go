package booking

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/pkg/response"
)

type OpsHandler struct {
	reconciler *Reconciler
}

func NewOpsHandler(reconciler *Reconciler) *OpsHandler {
	return &OpsHandler{reconciler: reconciler}
}

// RegisterRoutes mounts operator endpoints. The group must sit behind the
// internal token check.
func (h *OpsHandler) RegisterRoutes(internal *gin.RouterGroup) {
	internal.POST("/reconcile", h.Reconcile)
}

// Reconcile runs one calendar reconciliation batch synchronously.
func (h *OpsHandler) Reconcile(c *gin.Context) {
	stats, err := h.reconciler.RunOnce(c.Request.Context())
	if err != nil {
		log.Printf("calendar_reconcile_error source=internal err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Reconciliation failed")
		return
	}
	log.Printf("calendar_reconcile source=internal checked=%d synced=%d failed=%d", stats.Checked, stats.Synced, stats.Failed)
	response.Success(c, http.StatusOK, gin.H{
		"checked": stats.Checked,
		"synced":  stats.Synced,
		"failed":  stats.Failed,
	})
}
