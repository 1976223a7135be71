package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/internal/auth"
	"github.com/circlemart/circlemart-backend/internal/users"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
)

type stubAuthService struct {
	auth.Service
	loginErr  error
	gotLogin  auth.LoginRequest
	loggedOut string
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.gotLogin = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900, User: &users.UserDTO{}}, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOut = accessID
	return nil
}

func TestAuthLogin(t *testing.T) {
	stub := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"login":"ada@example.com","password":"secret123"}`))

	rec := serve(AuthLogin(stub, testLogger), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", stub.gotLogin.Login)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"access_token":"access"`)
}

func TestAuthLoginFailures(t *testing.T) {
	stub := &stubAuthService{}
	rec := serve(AuthLogin(stub, testLogger), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"login":"ada@example.com"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Details, "password")

	rec = serve(AuthLogin(stub, testLogger), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"login":"a","password":"b","extra":true}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	stub.loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	rec = serve(AuthLogin(stub, testLogger), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"login":"a","password":"b"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeEnvelope(t, rec).Error.Message)

	stub.loginErr = errors.New("db gone")
	rec = serve(AuthLogin(stub, testLogger), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"login":"a","password":"b"}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeEnvelope(t, rec).Error.Message)
}

func TestAuthLogoutNeedsSession(t *testing.T) {
	stub := &stubAuthService{}
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), uuid.New(), enums.UserRoleUser)

	rec := serve(AuthLogout(stub, testLogger), req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, stub.loggedOut)
}

func TestAuthRefreshNeedsAccessToken(t *testing.T) {
	rec := serve(AuthRefresh(&stubAuthService{}, testLogger), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"r"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
