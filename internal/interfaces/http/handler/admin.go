package handler

import (
	appregistry "github.com/bplo/backend/internal/application/registry"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves operational endpoints for back-office maintenance.
type AdminHandler struct {
	BaseHandler
	reconciler *appregistry.Reconciler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reconciler *appregistry.Reconciler) *AdminHandler {
	return &AdminHandler{reconciler: reconciler}
}

// Reconcile handles POST /admin/reconcile. It replays every canonical record
// through the cascade and removes derived rows whose canonical record is gone.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	report, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
