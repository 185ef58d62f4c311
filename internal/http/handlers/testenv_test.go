package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/handlers"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/repo/memory"
	"github.com/geocoder89/accounthub/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type recordedEvent struct {
	event  string
	status int
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) AuthEvent(event string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, status: status})
}

func (r *recordingEvents) last() recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return recordedEvent{}
	}
	return r.events[len(r.events)-1]
}

type testEnv struct {
	r      *gin.Engine
	repo   *memory.UsersRepo
	tokens *auth.Manager
	events *recordingEvents
}

func newTestEnv(t *testing.T, mode auth.Mode) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := security.NewHasher(bcrypt.MinCost)
	repo := memory.NewUsersRepo(hasher)

	tokens, err := auth.NewManager(auth.Config{Secret: "test-secret-key", Mode: mode})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	events := &recordingEvents{}

	authHandler := handlers.NewAuthHandler(repo, hasher, tokens, true, events, log)
	usersHandler := handlers.NewUsersHandler(repo, log)
	authMW := middlewares.NewAuthMiddleware(tokens, repo, tokens.AccessKind().CookieName(), log)

	r := gin.New()
	r.Use(middlewares.RequestID())

	a := r.Group("/auth")
	a.POST("/sign-up", authHandler.SignUp)
	a.POST("/sign-in", authHandler.SignIn)
	a.POST("/sign-out", authHandler.SignOut)
	a.POST("/refresh-token", authHandler.Refresh)

	u := r.Group("/users", authMW.RequireAuth())
	u.GET("", usersHandler.GetUsers)
	u.GET("/:id", usersHandler.GetUser)
	u.PUT("/:id", usersHandler.UpdateUser)
	u.DELETE("/:id", usersHandler.DeleteUser)

	return &testEnv{r: r, repo: repo, tokens: tokens, events: events}
}

type request struct {
	method  string
	path    string
	body    string
	bearer  string
	cookies []*http.Cookie
	header  map[string]string
}

func (e *testEnv) do(req request) *httptest.ResponseRecorder {
	var body io.Reader
	if req.body != "" {
		body = bytes.NewBufferString(req.body)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if req.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, r)
	return w
}

// seedUser creates a user straight in the repository and returns it with a
// valid access token.
func (e *testEnv) seedUser(t *testing.T, name, email, password string, role user.Role) (user.User, string) {
	t.Helper()

	u, err := e.repo.Create(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token, _, err := e.tokens.Sign(auth.SubjectOf(u), e.tokens.AccessKind())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	return u, token
}

type envelope struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field string `json:"field"`
		Rule  string `json:"rule"`
	} `json:"errors"`
	AccessToken string `json:"accessToken"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
	return env
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
