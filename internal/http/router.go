package http

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/http/handlers"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserStore is everything the HTTP layer needs from user storage. Both the
// postgres and the in-memory repositories satisfy it.
type UserStore interface {
	handlers.AuthStore
	handlers.UsersStore
	Ping(ctx context.Context) error
}

type Deps struct {
	Users  UserStore
	Hasher handlers.PasswordVerifier
	Tokens *auth.Manager
	Prom   *observability.Prom
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Prom == nil {
		deps.Prom = observability.NewProm()
	}

	r := gin.New()

	// middleware

	r.Use(gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		handlers.RespondInternal(ctx, "Internal server error", fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Diagnostics(!cfg.IsProd()))

	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.OTelServiceName))
	}

	r.Use(deps.Prom.GinHandleMiddleware())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.IsProd()))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})

	// health
	h := handlers.NewHealthHandler(deps.Users.Ping)
	r.GET("/", h.Root)
	r.GET("/health", h.Healthz)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))

	requireJSON := middlewares.RequireJSON()

	// auth
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Hasher, deps.Tokens, cfg.CookieSecure, deps.Prom, log)

	authGroup := r.Group("/auth")
	authGroup.POST("/sign-up", requireJSON, authHandler.SignUp)
	authGroup.POST("/sign-in", requireJSON, authHandler.SignIn)
	authGroup.POST("/signin", requireJSON, authHandler.SignIn)
	authGroup.POST("/sign-out", authHandler.SignOut)
	authGroup.POST("/signout", authHandler.SignOut)

	// refresh only exists when there is a refresh token to present
	if deps.Tokens.Mode() == auth.ModeDual {
		authGroup.POST("/refresh-token", authHandler.Refresh)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// users
	authMW := middlewares.NewAuthMiddleware(deps.Tokens, deps.Users, deps.Tokens.AccessKind().CookieName(), log)
	usersHandler := handlers.NewUsersHandler(deps.Users, log)

	users := r.Group("/users")
	users.Use(authMW.RequireAuth())
	{
		users.GET("", usersHandler.GetUsers)
		users.GET("/:id", usersHandler.GetUser)
		users.PUT("/:id", requireJSON, usersHandler.UpdateUser)
		users.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r
}
