package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/service"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type fakeAnalyticsSrv struct {
	teacherID string
	termID    string
}

func (f *fakeAnalyticsSrv) WeeklySchedule(_ context.Context, termID string) (*models.WeeklyTimetable, error) {
	f.termID = termID
	return &models.WeeklyTimetable{TermID: termID}, nil
}

func (f *fakeAnalyticsSrv) TeacherAttendance(_ context.Context, teacherID string, from, to *time.Time) (*models.TeacherAttendanceReport, error) {
	f.teacherID = teacherID
	return &models.TeacherAttendanceReport{TeacherID: teacherID, Records: []models.AttendanceDetail{}}, nil
}

func (f *fakeAnalyticsSrv) TeacherLoads(_ context.Context, termID string) (*models.TeacherLoadReport, error) {
	f.termID = termID
	return &models.TeacherLoadReport{TermID: termID, Overloaded: 1}, nil
}

func (f *fakeAnalyticsSrv) RoomOccupancy(_ context.Context, termID string) (*models.RoomOccupancyReport, error) {
	return &models.RoomOccupancyReport{TermID: termID, WindowHours: models.OccupancyWindowHours}, nil
}

type fakeReportJobs struct {
	req      service.ReportRequest
	actor    service.Actor
	download *service.ReportDownload
	err      error
}

func (f *fakeReportJobs) CreateJob(_ context.Context, req service.ReportRequest, actor service.Actor) (*models.ReportJob, error) {
	f.req, f.actor = req, actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReportJob{ID: "job-1", Type: req.Type, Status: models.ReportStatusQueued}, nil
}

func (f *fakeReportJobs) GetStatus(_ context.Context, id string, actor service.Actor) (*models.ReportJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReportJob{ID: id, Status: models.ReportStatusFinished, Progress: 100}, nil
}

func (f *fakeReportJobs) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return f.download, f.err
}

func TestReportHandlerCreateJobAccepted(t *testing.T) {
	jobs := &fakeReportJobs{}
	h := NewReportHandler(&fakeAnalyticsSrv{}, jobs)
	c, rec := newTestContext(http.MethodPost, "/reports/jobs", `{"type":"teacher_load","format":"pdf"}`, adminClaims)

	h.CreateJob(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pdf", jobs.req.Format)
	assert.Equal(t, "u-admin", jobs.actor.UserID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "job-1", envelope.Data["id"])
}

func TestReportHandlerJobStatusForbidden(t *testing.T) {
	h := NewReportHandler(&fakeAnalyticsSrv{}, &fakeReportJobs{err: appErrors.ErrForbidden})
	c, rec := newTestContext(http.MethodGet, "/reports/jobs/job-1", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	h.JobStatus(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportHandlerTeacherAttendanceOwnership(t *testing.T) {
	analytics := &fakeAnalyticsSrv{}
	h := NewReportHandler(analytics, &fakeReportJobs{})

	c, rec := newTestContext(http.MethodGet, "/reports/teacher-attendance/t2", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "t2"}}
	h.TeacherAttendance(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/reports/teacher-attendance/t2?from=2025-03-01", "", adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "t2"}}
	h.TeacherAttendance(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t2", analytics.teacherID)
}

func TestReportHandlerTeacherLoads(t *testing.T) {
	analytics := &fakeAnalyticsSrv{}
	h := NewReportHandler(analytics, &fakeReportJobs{})
	c, rec := newTestContext(http.MethodGet, "/reports/teacher-load?term_id=term-1", "", adminClaims)

	h.TeacherLoads(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "term-1", analytics.termID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(1), envelope.Data["overloaded"])
}

func TestReportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teacher_load.csv")
	require.NoError(t, os.WriteFile(path, []byte("Teacher,Entries\n"), 0o600))
	h := NewReportHandler(&fakeAnalyticsSrv{}, &fakeReportJobs{download: &service.ReportDownload{
		Path:        path,
		Filename:    "teacher_load.csv",
		ContentType: "text/csv",
	}})
	c, rec := newTestContext(http.MethodGet, "/reports/download/token", "", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "teacher_load.csv")
	assert.Equal(t, "Teacher,Entries\n", rec.Body.String())
}

func TestReportHandlerDownloadExpired(t *testing.T) {
	h := NewReportHandler(&fakeAnalyticsSrv{}, &fakeReportJobs{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})
	c, rec := newTestContext(http.MethodGet, "/reports/download/stale", "", nil)
	c.Params = gin.Params{{Key: "token", Value: "stale"}}

	h.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
