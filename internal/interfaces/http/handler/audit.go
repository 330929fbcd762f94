package handler

import (
	appaudit "github.com/bplo/backend/internal/application/audit"
	"github.com/bplo/backend/internal/domain/audit"
	"github.com/gin-gonic/gin"
)

// AuditHandler serves the audit trail listing endpoints.
type AuditHandler struct {
	BaseHandler
	writer *appaudit.Writer
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(writer *appaudit.Writer) *AuditHandler {
	return &AuditHandler{writer: writer}
}

type auditListQuery struct {
	AccountNo string `form:"account_no"`
	Action    string `form:"action"`
	Partition string `form:"partition"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List handles GET /audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	var query auditListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	action := audit.Action(query.Action)
	if query.Action != "" && !action.Valid() {
		h.BadRequest(c, "Action must be one of CREATE, UPDATE, DELETE")
		return
	}

	// Clamp here so the response meta reflects the page actually served.
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := audit.Filter{
		AccountNo: query.AccountNo,
		Action:    action,
		Partition: query.Partition,
		Page:      page,
		PageSize:  pageSize,
	}

	entries, total, err := h.writer.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, page, pageSize)
}
