package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/db"
	apphttp "github.com/geocoder89/accounthub/internal/http"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/repo/postgres"
	"github.com/geocoder89/accounthub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(dsn string) config.Config {
	return config.Config{
		Env:          "test",
		DBURL:        dsn,
		UsersStore:   "postgres",
		JWTSecret:    "test-secret-key",
		TokenMode:    "dual",
		CookieSecure: true,
		MaxBodyBytes: 1 << 20,
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := db.MigrateUp(dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := db.NewPool(context.Background(), dsn, 5)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	cfg := testConfig(dsn)
	hasher := security.NewHasher(bcrypt.MinCost)
	prom := observability.NewProm()

	tokens, err := auth.NewManager(auth.Config{Secret: cfg.JWTSecret})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Users:  postgres.NewUsersRepo(pool, hasher, prom),
		Hasher: hasher,
		Tokens: tokens,
		Prom:   prom,
	})

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), `TRUNCATE users`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func cookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	t.Fatalf("%s cookie not found in response", name)
	return nil
}

type signupResponse struct {
	Data struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func TestUsersIntegration_Lifecycle(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/auth/sign-up", `{"name":"Sam Doe","email":"Sam@Example.com","password":"password123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, body=%s", w.Code, w.Body.String())
	}

	var signup signupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &signup); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if signup.Data.User.Role != "user" {
		t.Fatalf("unexpected role %q", signup.Data.User.Role)
	}

	access := cookie(t, w, "accessToken")
	refresh := cookie(t, w, "refreshToken")
	id := signup.Data.User.ID

	// case-insensitive duplicate hits the unique index path
	w = doRequest(router, http.MethodPost, "/auth/sign-up", `{"name":"Sam Two","email":"sam@example.com","password":"password123"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup got %d", w.Code)
	}

	w = doRequest(router, http.MethodPut, "/users/"+id, `{"lastName":"Smith","password":"newpassword456"}`, access)
	if w.Code != http.StatusOK {
		t.Fatalf("update got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/auth/sign-in", `{"email":"sam@example.com","password":"newpassword456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("signin with new password got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/auth/refresh-token", "", refresh)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/users/"+id, "", access)
	if w.Code != http.StatusOK {
		t.Fatalf("get got %d", w.Code)
	}

	w = doRequest(router, http.MethodDelete, "/users/"+id, "", access)
	if w.Code != http.StatusOK {
		t.Fatalf("delete got %d", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/auth/refresh-token", "", refresh)
	if w.Code != http.StatusForbidden {
		t.Fatalf("refresh after delete got %d, want 403", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/users", "", access)
	if w.Code != http.StatusNotFound {
		t.Fatalf("token of deleted user got %d, want 404", w.Code)
	}
}

func TestUsersIntegration_ConcurrentSignupSameEmail(t *testing.T) {
	router, pool := setupRouter(t)

	const n = 8
	codes := make([]int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doRequest(router, http.MethodPost, "/auth/sign-up", `{"name":"Race Doe","email":"race@example.com","password":"password123"}`)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}

	if created != 1 {
		t.Fatalf("expected exactly one successful signup, got %d", created)
	}

	var count int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM users WHERE lower(email) = 'race@example.com'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}
