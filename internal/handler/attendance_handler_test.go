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
	"github.com/noah-isme/uni-schedule-api/internal/service"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type fakeAttendanceSrv struct {
	actor      service.Actor
	filter     models.AttendanceFilter
	statsFor   string
	registerFn func(req service.RegisterAttendanceRequest) (*models.AttendanceDetail, error)
	geoErr     error
	record     *models.AttendanceDetail
	deleted    string
	deleteErr  error
}

func (f *fakeAttendanceSrv) Register(_ context.Context, actor service.Actor, req service.RegisterAttendanceRequest) (*models.AttendanceDetail, error) {
	f.actor = actor
	return f.registerFn(req)
}

func (f *fakeAttendanceSrv) QRCode(_ context.Context, actor service.Actor, entryID, date string) (*service.AttendanceQR, error) {
	f.actor = actor
	return &service.AttendanceQR{ScheduleEntryID: entryID, Date: date, Payload: "signed"}, nil
}

func (f *fakeAttendanceSrv) CheckInQR(_ context.Context, actor service.Actor, req service.QRCheckInRequest) (*models.AttendanceDetail, error) {
	f.actor = actor
	return &models.AttendanceDetail{AttendanceRecord: models.AttendanceRecord{ID: "a1", Method: models.MethodQR}}, nil
}

func (f *fakeAttendanceSrv) CheckInGeo(_ context.Context, actor service.Actor, req service.GeoCheckInRequest) (*models.AttendanceDetail, error) {
	f.actor = actor
	return nil, f.geoErr
}

func (f *fakeAttendanceSrv) Get(context.Context, string) (*models.AttendanceDetail, error) {
	return f.record, nil
}

func (f *fakeAttendanceSrv) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	f.filter = filter
	return []models.AttendanceDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeAttendanceSrv) Update(context.Context, string, service.UpdateAttendanceRequest) (*models.AttendanceDetail, error) {
	return f.record, nil
}

func (f *fakeAttendanceSrv) Stats(_ context.Context, teacherID string, from, to *time.Time) (*models.AttendanceStats, error) {
	f.statsFor = teacherID
	return &models.AttendanceStats{TeacherID: teacherID, Total: 4, Present: 3, Percentage: 75}, nil
}

func (f *fakeAttendanceSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.deleteErr
}

func TestAttendanceHandlerRegister(t *testing.T) {
	srv := &fakeAttendanceSrv{registerFn: func(req service.RegisterAttendanceRequest) (*models.AttendanceDetail, error) {
		return &models.AttendanceDetail{AttendanceRecord: models.AttendanceRecord{ID: "a1", ScheduleEntryID: req.ScheduleEntryID, Status: models.AttendanceLate}}, nil
	}}
	h := NewAttendanceHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/attendance", `{"schedule_entry_id":"e1","date":"2025-03-03"}`, teacherClaims)

	h.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "t1", srv.actor.TeacherID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "late", envelope.Data["status"])
}

func TestAttendanceHandlerRegisterDuplicate(t *testing.T) {
	srv := &fakeAttendanceSrv{registerFn: func(service.RegisterAttendanceRequest) (*models.AttendanceDetail, error) {
		return nil, appErrors.ErrDuplicateAttendance
	}}
	h := NewAttendanceHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/attendance", `{"schedule_entry_id":"e1","date":"2025-03-03"}`, adminClaims)

	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAttendanceHandlerRequiresClaims(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendanceSrv{})
	c, rec := newTestContext(http.MethodPost, "/attendance/qr", `{"payload":"x"}`, nil)

	h.CheckInQR(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceHandlerGeoOutOfRange(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendanceSrv{geoErr: appErrors.ErrOutOfRange})
	c, rec := newTestContext(http.MethodPost, "/attendance/geo", `{"schedule_entry_id":"e1","latitude":-12.05,"longitude":-77.03}`, teacherClaims)

	h.CheckInGeo(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAttendanceHandlerListFilters(t *testing.T) {
	srv := &fakeAttendanceSrv{}
	h := NewAttendanceHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/attendance?teacher_id=t9&status=LATE&from=2025-03-01&to=2025-03-31", "", teacherClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", srv.filter.TeacherID)
	assert.Equal(t, models.AttendanceLate, srv.filter.Status)
	require.NotNil(t, srv.filter.DateFrom)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *srv.filter.DateFrom)
}

func TestAttendanceHandlerListRejectsBadDate(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendanceSrv{})
	c, rec := newTestContext(http.MethodGet, "/attendance?from=03/01/2025", "", adminClaims)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandlerGetForbidsOtherTeachers(t *testing.T) {
	srv := &fakeAttendanceSrv{record: &models.AttendanceDetail{AttendanceRecord: models.AttendanceRecord{ID: "a1", TeacherID: "t2"}}}
	h := NewAttendanceHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/attendance/a1", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}

	h.Get(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceHandlerStatsAndQR(t *testing.T) {
	srv := &fakeAttendanceSrv{}
	h := NewAttendanceHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/attendance/stats?teacher_id=t7", "", adminClaims)
	h.Stats(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t7", srv.statsFor)

	c, rec = newTestContext(http.MethodGet, "/attendance/qr/e1?date=2025-03-03", "", teacherClaims)
	c.Params = gin.Params{{Key: "entry_id", Value: "e1"}}
	h.QRCode(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "e1", envelope.Data["schedule_entry_id"])
	assert.Equal(t, "2025-03-03", envelope.Data["date"])
}

func TestAttendanceHandlerDelete(t *testing.T) {
	srv := &fakeAttendanceSrv{}
	h := NewAttendanceHandler(srv)
	c, rec := newTestContext(http.MethodDelete, "/attendance/a1", "", adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}

	h.Delete(c)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a1", srv.deleted)

	srv.deleteErr = appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	c, rec = newTestContext(http.MethodDelete, "/attendance/missing", "", adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceDeleteRouteRequiresStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens := tokenStub{"admin-token": adminClaims, "teacher-token": teacherClaims}
	h := NewAttendanceHandler(&fakeAttendanceSrv{})
	router.DELETE("/attendance/:id", middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator), h.Delete)

	req, _ := http.NewRequest(http.MethodDelete, "/attendance/a1", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	assert.Equal(t, http.StatusForbidden, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodDelete, "/attendance/a1", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusNoContent, performRequest(router, req).Code)
}
