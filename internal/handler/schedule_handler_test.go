package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/scheduling"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type fakeScheduleSrv struct {
	lastFilter models.ScheduleFilter
	lastScope  service.TimetableScope
	lastID     string
	lastTerm   string
	createErr  error
	report     *scheduling.Report
	assign     *models.AutoAssignResult
	assignErr  error
}

func (f *fakeScheduleSrv) List(_ context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.ScheduleEntryDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeScheduleSrv) Get(context.Context, string) (*models.ScheduleEntryDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
}

func (f *fakeScheduleSrv) Create(_ context.Context, req service.ScheduleRequest) (*models.ScheduleEntryDetail, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	detail := &models.ScheduleEntryDetail{}
	detail.ID = "e1"
	detail.GroupID = req.GroupID
	return detail, nil
}

func (f *fakeScheduleSrv) Update(context.Context, string, service.ScheduleRequest) (*models.ScheduleEntryDetail, error) {
	return &models.ScheduleEntryDetail{}, nil
}

func (f *fakeScheduleSrv) Delete(context.Context, string) error { return nil }

func (f *fakeScheduleSrv) Check(context.Context, service.ValidateScheduleRequest) (*scheduling.Report, error) {
	return f.report, nil
}

func (f *fakeScheduleSrv) Weekly(_ context.Context, scope service.TimetableScope, id, termID string) (*models.WeeklyTimetable, error) {
	f.lastScope, f.lastID, f.lastTerm = scope, id, termID
	return &models.WeeklyTimetable{TermID: termID}, nil
}

func (f *fakeScheduleSrv) AutoAssign(_ context.Context, termID string) (*models.AutoAssignResult, error) {
	f.lastTerm = termID
	return f.assign, f.assignErr
}

const schedulePayload = `{"group_id":"g1","teacher_id":"t1","room_id":"r1","weekday":1,"start_time":"08:00","end_time":"10:00"}`

func TestScheduleHandlerCreate(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{})
	c, rec := newTestContext(http.MethodPost, "/schedules", schedulePayload, adminClaims)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "g1", envelope.Data["group_id"])
}

func TestScheduleHandlerCreateConflict(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{createErr: appErrors.Clone(appErrors.ErrScheduleConflict, "room is already booked")})
	c, rec := newTestContext(http.MethodPost, "/schedules", schedulePayload, adminClaims)

	h.Create(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SCHEDULE_CONFLICT", envelope.Error.Code)
}

func TestScheduleHandlerCreateBadJSON(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{})
	c, rec := newTestContext(http.MethodPost, "/schedules", `{"weekday":`, adminClaims)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerListScopesTeachers(t *testing.T) {
	srv := &fakeScheduleSrv{}
	h := NewScheduleHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/schedules?teacher_id=t9&weekday=2&limit=5", "", teacherClaims)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", srv.lastFilter.TeacherID)
	assert.Equal(t, 2, srv.lastFilter.Weekday)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
}

func TestScheduleHandlerValidateReturnsReport(t *testing.T) {
	srv := &fakeScheduleSrv{report: &scheduling.Report{Valid: false, Unavailable: true, MaxHours: 40}}
	h := NewScheduleHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/schedules/validate", schedulePayload, adminClaims)

	h.Validate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Data["valid"])
	assert.Equal(t, true, envelope.Data["unavailable"])
}

func TestScheduleHandlerWeeklyTeacherOwnership(t *testing.T) {
	srv := &fakeScheduleSrv{}
	h := NewScheduleHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/schedules/weekly/teacher/t2", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "t2"}}
	h.WeeklyTeacher(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/schedules/weekly/teacher/t1?term_id=term-1", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.WeeklyTeacher(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.TimetableTeacher, srv.lastScope)
	assert.Equal(t, "t1", srv.lastID)
	assert.Equal(t, "term-1", srv.lastTerm)
}

func TestScheduleHandlerAutoAssign(t *testing.T) {
	srv := &fakeScheduleSrv{assign: &models.AutoAssignResult{TermID: "term-1", Assigned: 3, TotalGroups: 4, Failed: []models.FailedGroup{{GroupID: "g4"}}}}
	h := NewScheduleHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/schedules/auto-assign?term_id=term-1", "", adminClaims)

	h.AutoAssign(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(3), envelope.Meta["assigned"])
	assert.Equal(t, float64(1), envelope.Meta["failed"])
	assert.Equal(t, "term-1", srv.lastTerm)
}

func TestScheduleHandlerAutoAssignPrecondition(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleSrv{assignErr: appErrors.ErrNoActiveRooms})
	c, rec := newTestContext(http.MethodPost, "/schedules/auto-assign", "", adminClaims)

	h.AutoAssign(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
