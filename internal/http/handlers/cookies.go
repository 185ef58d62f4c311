package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Token cookies are HttpOnly, SameSite=Strict and scoped to the whole site so
// the identity middleware sees them on /users as well as /auth.
const cookiePath = "/"

type cookieJar struct {
	secure bool
}

func (j cookieJar) set(ctx *gin.Context, kind auth.Kind, raw string, ttl time.Duration) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		kind.CookieName(),
		raw,
		int(ttl.Seconds()),
		cookiePath,
		"",
		j.secure,
		true, // HttpOnly.
	)
}

func (j cookieJar) clear(ctx *gin.Context, kind auth.Kind) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		kind.CookieName(),
		"",
		-1,
		cookiePath,
		"",
		j.secure,
		true,
	)
}
