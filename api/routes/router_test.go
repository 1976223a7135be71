package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/api/controllers"
	"github.com/circlemart/circlemart-backend/internal/cart"
	"github.com/circlemart/circlemart-backend/internal/categories"
	pkgauth "github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/auth/session"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/metrics"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubCategories struct {
	categories.Service
	lastActive *bool
}

func (s *stubCategories) List(_ context.Context, filter categories.ListFilter) (*pagination.Page[models.Category], error) {
	s.lastActive = filter.IsActive
	return &pagination.Page[models.Category]{Items: []models.Category{}, Meta: pagination.NewMeta(filter.Page, 0)}, nil
}

type stubCart struct {
	cart.Service
	submits int
}

func (s *stubCart) Submit(_ context.Context, userID uuid.UUID, _ string) (*models.Cart, error) {
	s.submits++
	return &models.Cart{ID: uuid.New(), UserID: userID, Status: enums.CartStatusPending}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "circlemart", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Config == nil {
		deps.Config = testConfig()
	}
	deps.Logger = logger.New(logger.Options{ServiceName: "router-test", Level: logger.ParseLevel("error"), Output: io.Discard})
	deps.Sessions = stubSessions{}
	return NewRouter(deps)
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(t, Dependencies{Readiness: map[string]controllers.Pinger{"db": stubPinger{}}})
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)

	h = newTestRouter(t, Dependencies{Readiness: map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("down")}}})
	require.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/health/ready", "").Code)
}

func TestUnwiredServiceFails(t *testing.T) {
	h := newTestRouter(t, Dependencies{})
	require.Equal(t, http.StatusInternalServerError, do(h, http.MethodGet, "/api/v1/products", "").Code)
}

func TestPublicListSeesAdminFilter(t *testing.T) {
	cfg := testConfig()
	stub := &stubCategories{}
	h := newTestRouter(t, Dependencies{Config: cfg, Categories: stub})

	rec := do(h, http.MethodGet, "/api/v1/categories?is_active=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastActive)
	assert.True(t, *stub.lastActive)

	rec = do(h, http.MethodGet, "/api/v1/categories?is_active=false", bearer(t, cfg, enums.UserRoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastActive)
	assert.False(t, *stub.lastActive)
}

func TestProtectedRoutes(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(t, Dependencies{Config: cfg, Cart: &stubCart{}, Categories: &stubCategories{}})

	require.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/v1/cart", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/v1/auth/me", "").Code)
	require.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/api/v1/admin/carts", bearer(t, cfg, enums.UserRoleUser)).Code)
	require.Equal(t, http.StatusForbidden, do(h, http.MethodPost, "/api/v1/categories", bearer(t, cfg, enums.UserRoleUser)).Code)
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func TestCartSubmitIsIdempotent(t *testing.T) {
	cfg := testConfig()
	cartSvc := &stubCart{}
	h := newTestRouter(t, Dependencies{Config: cfg, Cart: cartSvc, IdempotencyStore: &memoryStore{data: map[string]string{}}})
	auth := bearer(t, cfg, enums.UserRoleUser)

	rec := do(h, http.MethodPost, "/api/v1/cart/submit", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, cartSvc.submits)

	submit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/submit", nil)
		req.Header.Set("Authorization", auth)
		req.Header.Set("Idempotency-Key", "submit-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	first := submit()
	require.Equal(t, http.StatusOK, first.Code)
	second := submit()
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 2, cartSvc.submits)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestRouter(t, Dependencies{HTTPMetrics: metrics.NewHTTPMetrics(reg), Gatherer: reg})

	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/health/live"`), rec.Body.String())
}
