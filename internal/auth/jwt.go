package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret         = errors.New("jwt secret is not configured")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnsupportedKind       = errors.New("token kind not supported in this mode")
)

// Mode selects between access+refresh tokens and a single session token.
type Mode string

const (
	ModeDual   Mode = "dual"
	ModeSingle Mode = "single"
)

func (m Mode) IsValid() bool {
	return m == ModeDual || m == ModeSingle
}

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindSession Kind = "session"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultSessionTTL = 24 * time.Hour
)

type Claims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	TokenType Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is issued for.
type Subject struct {
	ID    string
	Email string
	Role  user.Role
}

func SubjectOf(u user.User) Subject {
	return Subject{ID: u.ID, Email: u.Email, Role: u.Role}
}

type Config struct {
	Secret     string
	Mode       Mode
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

type Manager struct {
	secret     []byte
	mode       Mode
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeDual
	}

	if !cfg.Mode.IsValid() {
		return nil, fmt.Errorf("unknown token mode %q", cfg.Mode)
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	return &Manager{
		secret:     []byte(cfg.Secret),
		mode:       cfg.Mode,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}, nil
}

// WithClock swaps the time source. Used by tests to mint already-expired tokens.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) Mode() Mode {
	return m.mode
}

// AccessKind is the kind that authorizes individual requests in the current mode.
func (m *Manager) AccessKind() Kind {
	if m.mode == ModeSingle {
		return KindSession
	}
	return KindAccess
}

// Kinds lists the token kinds issued in the current mode.
func (m *Manager) Kinds() []Kind {
	if m.mode == ModeSingle {
		return []Kind{KindSession}
	}
	return []Kind{KindAccess, KindRefresh}
}

func (m *Manager) TTL(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return m.accessTTL
	case KindRefresh:
		return m.refreshTTL
	default:
		return m.sessionTTL
	}
}

func (m *Manager) supports(kind Kind) bool {
	for _, k := range m.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Sign issues a token of the given kind. Refresh tokens carry no role so the
// role is always re-read from storage when a new access token is minted.
func (m *Manager) Sign(sub Subject, kind Kind) (string, time.Time, error) {
	if !m.supports(kind) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.TTL(kind))

	claims := Claims{
		UserID:    sub.ID,
		Email:     sub.Email,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	if kind != KindRefresh {
		claims.Role = string(sub.Role)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return raw, expiresAt, nil
}

// Verify checks signature, expiry and kind. Every failure is ErrInvalidOrExpiredToken.
func (m *Manager) Verify(tokenStr string, kind Kind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpiredToken, err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidOrExpiredToken
	}

	if claims.TokenType != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidOrExpiredToken, kind, claims.TokenType)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidOrExpiredToken)
	}

	return claims, nil
}

// VerifyAccess verifies a request-authorizing token for the current mode.
func (m *Manager) VerifyAccess(tokenStr string) (*Claims, error) {
	return m.Verify(tokenStr, m.AccessKind())
}

func (m *Manager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return m.Verify(tokenStr, KindRefresh)
}

// Decode parses claims without checking the signature. It is for logging
// only and must never feed an authorization decision.
func (m *Manager) Decode(tokenStr string) (*Claims, bool) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if err != nil {
		return nil, false
	}

	return claims, true
}
