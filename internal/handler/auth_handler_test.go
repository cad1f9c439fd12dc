package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type fakeAuthSrv struct {
	login      models.LoginRequest
	loginErr   error
	logoutUser string
	logoutTok  string
	changed    string
	meErr      error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.login = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{
		TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600},
		User:      models.UserInfo{ID: "u-teacher", Role: models.RoleTeacher, TeacherID: "t1"},
	}, nil
}

func (f *fakeAuthSrv) RefreshToken(_ context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error) {
	return &models.TokenPair{AccessToken: "access-2", RefreshToken: req.RefreshToken + "-next"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, userID, refreshToken, _, _ string) error {
	f.logoutUser, f.logoutTok = userID, refreshToken
	return nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest) error {
	f.changed = userID
	return nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &models.UserInfo{ID: userID, Role: models.RoleTeacher, TeacherID: "t1"}, nil
}

func TestAuthHandlerLoginFlattensTokenPair(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"ana@uni.edu","password":"s3cret-pass"}`, nil)
	c.Request.Header.Set("User-Agent", "schedctl-test")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@uni.edu", srv.login.Email)
	assert.Equal(t, "schedctl-test", srv.login.UserAgent)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "access", envelope.Data["access_token"])
	assert.Equal(t, "refresh", envelope.Data["refresh_token"])
	user, ok := envelope.Data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "t1", user["teacher_id"])
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/login", `{"email":"ana@uni.edu","password":"wrong"}`, nil)
	h.Login(c)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Status, rec.Code)
}

func TestAuthHandlerLogoutUsesCaller(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/auth/logout", `{"refresh_token":"r-1"}`, nil)
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/logout", `{}`, teacherClaims)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/logout", `{"refresh_token":"r-1"}`, teacherClaims)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-teacher", srv.logoutUser)
	assert.Equal(t, "r-1", srv.logoutTok)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newTestContext(http.MethodGet, "/auth/me", "", teacherClaims)

	h.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "u-teacher", envelope.Data["id"])

	h = NewAuthHandler(&fakeAuthSrv{meErr: appErrors.ErrNotFound})
	c, rec = newTestContext(http.MethodGet, "/auth/me", "", adminClaims)
	h.Me(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
