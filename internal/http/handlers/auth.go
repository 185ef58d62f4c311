package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/apperr"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, in user.NewUser) (user.User, error)
}

type PasswordVerifier interface {
	Verify(plain, hash string) (bool, error)
}

// AuthEventRecorder counts auth flow outcomes. observability.Prom satisfies it.
type AuthEventRecorder interface {
	AuthEvent(event string, status int)
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, int) {}

type AuthStore interface {
	UserReader
	UserWriter
}

type AuthHandler struct {
	users   AuthStore
	hasher  PasswordVerifier
	jwt     *auth.Manager
	cookies cookieJar
	events  AuthEventRecorder
	log     *slog.Logger
}

func NewAuthHandler(users AuthStore, hasher PasswordVerifier, jwtManager *auth.Manager, secureCookies bool, events AuthEventRecorder, log *slog.Logger) *AuthHandler {
	if events == nil {
		events = noopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:   users,
		hasher:  hasher,
		jwt:     jwtManager,
		cookies: cookieJar{secure: secureCookies},
		events:  events,
		log:     log,
	}
}

// record counts the final status of an auth flow once the handler returns.
func (h *AuthHandler) record(ctx *gin.Context, event string) {
	h.events.AuthEvent(event, ctx.Writer.Status())
}

// issueTokens signs every token kind of the current mode and sets the
// matching cookies. The returned map is keyed by cookie name, which is also
// the field name clients read from the body.
func (h *AuthHandler) issueTokens(ctx *gin.Context, u user.User) (gin.H, error) {
	tokens := gin.H{}

	for _, kind := range h.jwt.Kinds() {
		raw, _, err := h.jwt.Sign(auth.SubjectOf(u), kind)
		if err != nil {
			return nil, err
		}

		h.cookies.set(ctx, kind, raw, h.jwt.TTL(kind))
		tokens[kind.CookieName()] = raw
	}

	return tokens, nil
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	defer h.record(ctx, "signup")

	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// new accounts are always plain users; admins come from the bootstrap seed
	u, err := h.users.Create(cctx, user.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     user.RoleUser,
	})

	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			RespondConflict(ctx, "Email already exists")
			return
		}

		RespondInternal(ctx, "Could not create user", err)
		return
	}

	data, err := h.issueTokens(ctx, u)
	if err != nil {
		RespondInternal(ctx, "Could not generate tokens", err)
		return
	}

	data["user"] = u.Public()

	h.log.InfoContext(ctx.Request.Context(), "user signed up", "user_id", u.ID, "email", u.Email, "role", u.Role)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User signed up successfully",
		"data":    data,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	defer h.record(ctx, "signin")

	var req user.SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.FindByEmail(cctx, req.Email)
	if err != nil {
		RespondInternal(ctx, "Could not sign in", err)
		return
	}

	if found == nil {
		h.log.WarnContext(ctx.Request.Context(), "sign in attempt with non-existent email", "email", req.Email)
		RespondNotFound(ctx, "User not found")
		return
	}

	_, span := observability.StartSpan(ctx.Request.Context(), "password.verify")
	ok, err := h.hasher.Verify(req.Password, found.PasswordHash)
	span.End()

	if err != nil {
		RespondInternal(ctx, "Could not sign in", err)
		return
	}

	if !ok {
		h.log.WarnContext(ctx.Request.Context(), "sign in attempt with wrong password", "email", req.Email)
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	data, err := h.issueTokens(ctx, *found)
	if err != nil {
		RespondInternal(ctx, "Could not generate tokens", err)
		return
	}

	data["user"] = found.Public()

	h.log.InfoContext(ctx.Request.Context(), "user signed in", "user_id", found.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed in successfully",
		"data":    data,
	})
}

// SignOut clears every token cookie. It needs no valid session and always succeeds.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	defer h.record(ctx, "signout")

	// best effort: name who signed out in the log, the token is not trusted
	who := ""
	if raw := extractAny(ctx, h.jwt.Kinds()); raw != "" {
		if claims, ok := h.jwt.Decode(raw); ok {
			who = claims.Email
		}
	}

	for _, kind := range h.jwt.Kinds() {
		h.cookies.clear(ctx, kind)
	}

	h.log.InfoContext(ctx.Request.Context(), "user signed out", "email", who)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User signed out successfully",
	})
}

// Refresh mints a new access token from the refresh cookie. The role is
// re-read from storage, so a role change shows up on the next refresh.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	defer h.record(ctx, "refresh")

	raw, err := ctx.Cookie(auth.KindRefresh.CookieName())

	if err != nil || raw == "" {
		RespondUnauthorized(ctx, "no_refresh", "Refresh token not found")
		return
	}

	claims, err := h.jwt.VerifyRefresh(raw)

	if err != nil {
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.FindByEmail(cctx, claims.Email)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session", err)
		return
	}

	if u == nil || !u.IsActive {
		RespondErr(ctx, apperr.Forbidden("User not found or inactive"))
		return
	}

	accessToken, _, err := h.jwt.Sign(auth.SubjectOf(*u), auth.KindAccess)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.cookies.set(ctx, auth.KindAccess, accessToken, h.jwt.TTL(auth.KindAccess))

	h.log.InfoContext(ctx.Request.Context(), "access token refreshed", "user_id", u.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Access token refreshed successfully",
		"accessToken": accessToken,
	})
}

func extractAny(ctx *gin.Context, kinds []auth.Kind) string {
	for _, kind := range kinds {
		if raw, err := ctx.Cookie(kind.CookieName()); err == nil && raw != "" {
			return raw
		}
	}
	return ""
}
