package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler exposes the audit trail to administrators and coordinators.
type AuditHandler struct {
	audits auditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audits auditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List godoc
// @Summary Browse audit logs
// @Tags Audit
// @Produce json
// @Param resource query string false "Resource, e.g. schedule or attendance"
// @Param resource_id query string false "Resource ID"
// @Param action query string false "Action"
// @Param user_id query string false "Acting user ID"
// @Param from query string false "From date YYYY-MM-DD"
// @Param to query string false "To date YYYY-MM-DD, inclusive"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	h.list(c, strings.TrimSpace(c.Query("resource")))
}

// ListByResource godoc
// @Summary Audit history of one resource type
// @Tags Audit
// @Produce json
// @Param resource path string true "Resource"
// @Param resource_id query string false "Resource ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs/{resource} [get]
func (h *AuditHandler) ListByResource(c *gin.Context) {
	h.list(c, c.Param("resource"))
}

func (h *AuditHandler) list(c *gin.Context, resource string) {
	from, to, err := dateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	filter := models.AuditFilter{
		UserID:     strings.TrimSpace(c.Query("user_id")),
		Resource:   resource,
		ResourceID: strings.TrimSpace(c.Query("resource_id")),
		Action:     strings.TrimSpace(c.Query("action")),
		From:       from,
		To:         to,
	}
	filter.Page, filter.PageSize = pageParams(c)

	logs, pagination, err := h.audits.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
