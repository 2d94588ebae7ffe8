package auth

import (
	"context"
	"testing"
	"time"

	"github.com/core-bank/core_bank/internal/config"
	"github.com/core-bank/core_bank/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func registerUser(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	user, err := identity.NewService(repo).Register(context.Background(), identity.Credentials{
		Username: "alice", Email: "alice@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	claims := map[string]any{"sub": "user-1", "ver": 2}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if parsed["sub"] != "user-1" {
		t.Fatalf("unexpected sub claim: %v", parsed["sub"])
	}

	if _, err := ParseAndVerifyHS256(token, []byte("other-secret")); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
	if _, err := ParseAndVerifyHS256(token+"x", secret); err == nil {
		t.Fatal("expected verification failure for tampered token")
	}
	if _, err := ParseAndVerifyHS256("not-a-token", secret); err == nil {
		t.Fatal("expected failure for malformed token")
	}
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(cfg, repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn <= 0 {
		t.Fatalf("expected positive expiry, got %d", pair.ExpiresIn)
	}

	claims, err := ParseAndVerifyHS256(pair.AccessToken, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if claims["sub"] != user.ID || claims["username"] != user.Username {
		t.Fatalf("unexpected claims: %v", claims)
	}

	// Refresh token is signed with the other secret.
	if _, err := ParseAndVerifyHS256(pair.RefreshToken, []byte(cfg.JWTSecret)); err == nil {
		t.Fatal("refresh token should not verify against the access secret")
	}
	if _, err := ParseAndVerifyHS256(pair.RefreshToken, []byte(cfg.RefreshSecret)); err != nil {
		t.Fatalf("verify refresh token: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(cfg, repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry, got %d", expiresIn)
	}
	if _, err := ParseAndVerifyHS256(access, []byte(cfg.JWTSecret)); err != nil {
		t.Fatalf("verify refreshed access token: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.AccessToken); err == nil {
		t.Fatal("access token must not be accepted as a refresh token")
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	cfg := testConfig()
	repo := identity.NewMemoryRepository()
	user := registerUser(t, repo)
	svc := NewService(cfg, repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("expected refresh to fail after logout bumped the token version")
	}
}
