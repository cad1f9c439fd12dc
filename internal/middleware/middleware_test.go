package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/service"
)

type auditRecorder struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditRecorder) Create(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func TestRBACAllowsSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}))
	router.GET("/users/:id", RBAC(string(models.RoleAdmin), "SELF"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u2", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &auditRecorder{}
	router := gin.New()
	router.Use(withClaims(&models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin}))
	router.PUT("/schedules/:id", Audit(recorder, nil, "schedule.update", "schedule"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.DELETE("/schedules/:id", Audit(recorder, nil, "schedule.delete", "schedule"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/schedules/e1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/schedules/e1", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Len(t, recorder.logs, 1)
	log := recorder.logs[0]
	assert.Equal(t, "schedule.update", log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "u-admin", *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "e1", *log.ResourceID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(log.NewValues, &body))
	assert.Equal(t, "/schedules/:id", body["path"])
}

func TestAuditWriteFailureDoesNotChangeResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/terms", Audit(&auditRecorder{err: errors.New("db down")}, nil, "term.create", "term"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/terms", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestObserveFeedsResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Observe(metrics))
	var meta gin.H
	router.GET("/schedules/weekly", func(c *gin.Context) {
		meta = ResponseMeta(c, true)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/weekly", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func TestResponseMetaWithoutObserve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	meta := ResponseMeta(c, false)
	assert.Equal(t, false, meta["cache_hit"])
	assert.Equal(t, int64(0), meta["processing_time_ms"])
}
