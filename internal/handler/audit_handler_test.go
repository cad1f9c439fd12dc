package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/middleware"
	"github.com/noah-isme/uni-schedule-api/internal/models"
)

type fakeAuditSrv struct {
	filter models.AuditFilter
	logs   []models.AuditLog
}

func (f *fakeAuditSrv) List(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	f.filter = filter
	return f.logs, models.NewPagination(filter.Page, filter.PageSize, len(f.logs)), nil
}

func TestAuditHandlerListFilters(t *testing.T) {
	srv := &fakeAuditSrv{logs: []models.AuditLog{{ID: "log-1", Action: "schedule.delete", Resource: "schedule"}}}
	h := NewAuditHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/audit-logs?resource=schedule&user_id=u-admin&action=schedule.delete&from=2025-03-01&to=2025-03-31&page=2&limit=10", "", adminClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "schedule", srv.filter.Resource)
	assert.Equal(t, "u-admin", srv.filter.UserID)
	assert.Equal(t, "schedule.delete", srv.filter.Action)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 10, srv.filter.PageSize)
	require.NotNil(t, srv.filter.From)
	require.NotNil(t, srv.filter.To)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *srv.filter.From)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), *srv.filter.To)

	var envelope struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination map[string]interface{}   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "log-1", envelope.Data[0]["id"])
	assert.EqualValues(t, 1, envelope.Pagination["total_count"])
}

func TestAuditHandlerListByResourceAndBadDate(t *testing.T) {
	srv := &fakeAuditSrv{}
	h := NewAuditHandler(srv)

	router := gin.New()
	router.GET("/audit-logs/:resource", h.ListByResource)
	req, _ := http.NewRequest(http.MethodGet, "/audit-logs/attendance?resource_id=a1", nil)
	rec := performRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attendance", srv.filter.Resource)
	assert.Equal(t, "a1", srv.filter.ResourceID)

	c, rec := newTestContext(http.MethodGet, "/audit-logs?from=03-01-2025", "", adminClaims)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditRouteRequiresStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens := tokenStub{"admin-token": adminClaims, "teacher-token": teacherClaims}
	h := NewAuditHandler(&fakeAuditSrv{})
	router.GET("/audit-logs", middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator), h.List)

	req, _ := http.NewRequest(http.MethodGet, "/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	assert.Equal(t, http.StatusForbidden, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodGet, "/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusOK, performRequest(router, req).Code)
}
