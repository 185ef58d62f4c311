package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func newDualManager(t *testing.T) *auth.Manager {
	t.Helper()

	m, err := auth.NewManager(auth.Config{Secret: "test-secret-key", Mode: auth.ModeDual})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

var jane = auth.Subject{ID: "7d0a3a9e-7c1c-4a53-9d0e-2f7f3f3a1c11", Email: "jane@x.com", Role: user.RoleAdmin}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := auth.NewManager(auth.Config{})
	if !errors.Is(err, auth.ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}

	_, err = auth.NewManager(auth.Config{Secret: "x", Mode: "triple"})
	if err == nil {
		t.Fatalf("expected unknown mode to be rejected")
	}
}

func TestSignVerify_AccessCarriesRole(t *testing.T) {
	m := newDualManager(t)

	raw, exp, err := m.Sign(jane, auth.KindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if d := time.Until(exp); d <= 14*time.Minute || d > 15*time.Minute {
		t.Fatalf("unexpected access ttl %v", d)
	}

	claims, err := m.VerifyAccess(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != jane.ID || claims.Email != jane.Email || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestSign_RefreshOmitsRole(t *testing.T) {
	m := newDualManager(t)

	raw, exp, err := m.Sign(jane, auth.KindRefresh)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if d := time.Until(exp); d < 6*24*time.Hour {
		t.Fatalf("unexpected refresh ttl %v", d)
	}

	claims, err := m.VerifyRefresh(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.Role != "" {
		t.Fatalf("refresh token must not carry a role, got %q", claims.Role)
	}
}

func TestVerify_RejectsWrongKind(t *testing.T) {
	m := newDualManager(t)

	refresh, _, _ := m.Sign(jane, auth.KindRefresh)
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("refresh token used as access: got %v", err)
	}

	access, _, _ := m.Sign(jane, auth.KindAccess)
	if _, err := m.VerifyRefresh(access); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("access token used as refresh: got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	m := newDualManager(t)

	past := m.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })

	raw, _, err := past.Sign(jane, auth.KindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifyAccess(raw); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerify_TamperedAndForeign(t *testing.T) {
	m := newDualManager(t)

	raw, _, _ := m.Sign(jane, auth.KindAccess)

	parts := strings.Split(raw, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := m.VerifyAccess(tampered); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("tampered token: got %v", err)
	}

	other, _ := auth.NewManager(auth.Config{Secret: "another-secret"})
	foreign, _, _ := other.Sign(jane, auth.KindAccess)

	if _, err := m.VerifyAccess(foreign); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("foreign token: got %v", err)
	}

	if _, err := m.VerifyAccess("not.a.token"); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("garbage token: got %v", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m := newDualManager(t)

	claims := auth.Claims{
		UserID:    jane.ID,
		Email:     jane.Email,
		Role:      "admin",
		TokenType: auth.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := m.VerifyAccess(raw); !errors.Is(err, auth.ErrInvalidOrExpiredToken) {
		t.Fatalf("alg=none must be rejected, got %v", err)
	}
}

func TestSingleMode(t *testing.T) {
	m, err := auth.NewManager(auth.Config{Secret: "s", Mode: auth.ModeSingle})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if m.AccessKind() != auth.KindSession {
		t.Fatalf("single mode should authorize with session tokens")
	}

	if _, _, err := m.Sign(jane, auth.KindRefresh); !errors.Is(err, auth.ErrUnsupportedKind) {
		t.Fatalf("refresh should be unsupported in single mode, got %v", err)
	}

	raw, exp, err := m.Sign(jane, auth.KindSession)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if d := time.Until(exp); d < 23*time.Hour {
		t.Fatalf("session ttl should default to a day, got %v", d)
	}

	claims, err := m.VerifyAccess(raw)
	if err != nil || claims.Role != "admin" {
		t.Fatalf("verify session: claims=%+v err=%v", claims, err)
	}
}

func TestDecode_DoesNotVerify(t *testing.T) {
	m := newDualManager(t)
	other, _ := auth.NewManager(auth.Config{Secret: "another-secret"})

	raw, _, _ := other.Sign(jane, auth.KindAccess)

	claims, ok := m.Decode(raw)
	if !ok || claims.Email != jane.Email {
		t.Fatalf("decode should read claims without a valid signature: %+v %v", claims, ok)
	}

	if _, ok := m.Decode("garbage"); ok {
		t.Fatalf("decode of garbage should fail")
	}
}
