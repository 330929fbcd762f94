package handler

import (
	"strconv"

	appregistry "github.com/bplo/backend/internal/application/registry"
	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"github.com/bplo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// RecordHandler serves the business record endpoints. Mutations go through
// the canonical year only; later partitions are kept in sync by the cascade
// and exposed read-only.
type RecordHandler struct {
	BaseHandler
	service *appregistry.RecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(service *appregistry.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Create handles POST /records
func (h *RecordHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appregistry.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	record, err := h.service.Create(c.Request.Context(), req, requestContext(c, userID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, record)
}

// Update handles PUT /records/:accountNo
func (h *RecordHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	accountNo := c.Param("accountNo")
	if accountNo == "" {
		h.BadRequest(c, "Account number is required")
		return
	}

	var req appregistry.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	record, err := h.service.Update(c.Request.Context(), accountNo, req, requestContext(c, userID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// Delete handles DELETE /records/:accountNo
func (h *RecordHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	accountNo := c.Param("accountNo")
	if accountNo == "" {
		h.BadRequest(c, "Account number is required")
		return
	}

	if err := h.service.Delete(c.Request.Context(), accountNo, requestContext(c, userID)); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Get handles GET /records/:accountNo
func (h *RecordHandler) Get(c *gin.Context) {
	accountNo := c.Param("accountNo")
	if accountNo == "" {
		h.BadRequest(c, "Account number is required")
		return
	}

	record, err := h.service.Get(c.Request.Context(), accountNo)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// List handles GET /records
func (h *RecordHandler) List(c *gin.Context) {
	var filter appregistry.RecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// GetForYear handles GET /years/:year/records/:accountNo
func (h *RecordHandler) GetForYear(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	accountNo := c.Param("accountNo")
	if accountNo == "" {
		h.BadRequest(c, "Account number is required")
		return
	}

	record, err := h.service.GetForYear(c.Request.Context(), year, accountNo)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}

// ListForYear handles GET /years/:year/records
func (h *RecordHandler) ListForYear(c *gin.Context) {
	year, err := parseYearParam(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	var filter appregistry.RecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	records, total, err := h.service.ListForYear(c.Request.Context(), year, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// RejectDerivedMutation handles any write verb under /years/:year/records.
// Derived partitions only change through the canonical-year cascade.
func (h *RecordHandler) RejectDerivedMutation(c *gin.Context) {
	if _, err := parseYearParam(c); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.HandleDomainError(c, shared.ErrDerivedReadOnly)
}

func parseYearParam(c *gin.Context) (registry.Year, error) {
	raw := c.Param("year")
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.ErrInvalidYear
	}
	year := registry.Year(value)
	if !year.Valid() {
		return 0, shared.ErrInvalidYear
	}
	return year, nil
}
