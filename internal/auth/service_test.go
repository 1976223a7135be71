package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/auth/session"
	"github.com/circlemart/circlemart-backend/pkg/config"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "circlemart",
	ExpirationMinutes: 30,
}

func TestRegisterIssuesTokensAndSendsWelcome(t *testing.T) {
	svc, _, sessions, notifier := buildTestService(t)

	resp, err := svc.Register(context.Background(), validRegistration("nora"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", resp.User.Role)
	}
	if resp.User.Email != "nora@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("token subject mismatch")
	}
	if sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatalf("expected refresh token stored under jti")
	}
	if len(notifier.welcomed) != 1 || notifier.welcomed[0] != "nora@example.com" {
		t.Fatalf("expected one welcome email, got %v", notifier.welcomed)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	svc, _, _, notifier := buildTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration("omar")); err != nil {
		t.Fatalf("register: %v", err)
	}

	dupEmail := validRegistration("omar2")
	dupEmail.Email = "OMAR@example.com"
	assertCode(t, mustFail(svc.Register(ctx, dupEmail)), pkgerrors.CodeConflict)

	dupUser := validRegistration("Omar")
	dupUser.Email = "other@example.com"
	dupUser.Phone = "+15550000999"
	assertCode(t, mustFail(svc.Register(ctx, dupUser)), pkgerrors.CodeConflict)

	weak := validRegistration("weak")
	weak.Password = "password"
	assertCode(t, mustFail(svc.Register(ctx, weak)), pkgerrors.CodeValidation)

	if len(notifier.welcomed) != 1 {
		t.Fatalf("expected only the first registration to be welcomed, got %d", len(notifier.welcomed))
	}
}

func TestLoginByEmailOrUsername(t *testing.T) {
	svc, client, _, _ := buildTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegistration("pia")); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, login := range []string{"pia@example.com", "PIA"} {
		resp, err := svc.Login(ctx, LoginRequest{Login: login, Password: "s3cretpass"})
		if err != nil {
			t.Fatalf("login %q: %v", login, err)
		}
		if resp.User.LastLoginAt == nil {
			t.Fatalf("expected last login to be recorded")
		}
	}

	assertCode(t, mustFail(svc.Login(ctx, LoginRequest{Login: "pia", Password: "wrong"})), pkgerrors.CodeUnauthorized)
	assertCode(t, mustFail(svc.Login(ctx, LoginRequest{Login: "nobody", Password: "s3cretpass"})), pkgerrors.CodeUnauthorized)

	if err := client.DB().Model(&models.User{}).Where("username = ?", "pia").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	assertCode(t, mustFail(svc.Login(ctx, LoginRequest{Login: "pia", Password: "s3cretpass"})), pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions, _ := buildTestService(t)
	ctx := context.Background()
	first, err := svc.Register(ctx, validRegistration("quinn"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	oldClaims, _ := pkgAuth.ParseAccessToken(testJWT, first.AccessToken)

	second, err := svc.Refresh(ctx, first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	newClaims, err := pkgAuth.ParseAccessToken(testJWT, second.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if newClaims.ID == oldClaims.ID {
		t.Fatalf("expected a new session id")
	}
	if _, ok := sessions.tokens[oldClaims.ID]; ok {
		t.Fatalf("expected old session to be removed")
	}

	assertCode(t, mustFail(svc.Refresh(ctx, first.AccessToken, RefreshRequest{RefreshToken: first.RefreshToken})), pkgerrors.CodeUnauthorized)

	if err := svc.Logout(ctx, newClaims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.tokens[newClaims.ID]; ok {
		t.Fatalf("expected logout to revoke the session")
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _, _ := buildTestService(t)
	ctx := context.Background()
	resp, err := svc.Register(ctx, validRegistration("rui"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	err = svc.ChangePassword(ctx, resp.User.ID, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "n3wpassword"})
	assertCode(t, err, pkgerrors.CodeValidation)

	err = svc.ChangePassword(ctx, resp.User.ID, ChangePasswordRequest{CurrentPassword: "s3cretpass", NewPassword: "n3wpassword"})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Login: "rui", Password: "n3wpassword"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	assertCode(t, mustFail(svc.Login(ctx, LoginRequest{Login: "rui", Password: "s3cretpass"})), pkgerrors.CodeUnauthorized)

	me, err := svc.Me(ctx, resp.User.ID)
	if err != nil || me.Username != "rui" {
		t.Fatalf("me: %v %+v", err, me)
	}
	assertCode(t, mustFail(svc.Me(ctx, uuid.New())), pkgerrors.CodeNotFound)
}

func buildTestService(t *testing.T) (Service, *db.Client, *stubSessionManager, *recordingNotifier) {
	t.Helper()
	client := dbtest.Open(t)
	sessions := &stubSessionManager{tokens: map[string]string{}}
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		DB:             client,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Notifier:       notifier,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	svc.(*service).now = func() time.Time { return time.Now().UTC() }
	return svc, client, sessions, notifier
}

func validRegistration(username string) RegisterRequest {
	return RegisterRequest{
		FullName: username + " Example",
		Username: username,
		Email:    username + "@example.com",
		Phone:    "+1555" + uuid.NewString()[:7],
		Password: "s3cretpass",
	}
}

func mustFail[T any](_ T, err error) error {
	return err
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

type stubSessionManager struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.tokens[oldAccessID]; !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	next := session.NewAccessID()
	s.tokens[next] = "refresh-" + next
	return next, s.tokens[next], nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accessID)
	return nil
}

type recordingNotifier struct {
	welcomed []string
}

func (n *recordingNotifier) SendWelcome(_ context.Context, _, address string) {
	n.welcomed = append(n.welcomed, address)
}

func (n *recordingNotifier) SendGroupApproval(context.Context, string, string, string, string) {}

func (n *recordingNotifier) SendGroupRejection(context.Context, string, string, string) {}
