package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const strongPassword = "Abc12345!"

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []mail.Job
}

func (q *fakeQueue) Enqueue(job mail.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

func (q *fakeQueue) lastCode(t *testing.T) string {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.jobs) - 1; i >= 0; i-- {
		if q.jobs[i].Template == mail.TemplateSignupVerification {
			return q.jobs[i].Data["code"]
		}
	}
	t.Fatal("no verification mail enqueued")
	return ""
}

type testAPI struct {
	server  *HTTPServer
	handler http.Handler
	store   *memory.Store
	users   *services.UserService
	tokens  *auth.TokenManager
	queue   *fakeQueue
	metrics *metrics.Metrics
	logs    *syncBuffer
}

func newTestAPI(t *testing.T, opts ...Option) *testAPI {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		CodeLength:                   6,
		CodeValidityDuration:         time.Hour,
		AppName:                      "Auth Service",
	}

	logs := &syncBuffer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	store := memory.NewStore(nil)
	hasher := cryptox.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager(cfg.SecretKey)
	queue := &fakeQueue{}
	codes := services.NewCodeService(db, store, cfg)
	as := services.NewAuthService(db, store, cfg, hasher, tokens, codes, queue, logger)
	us := services.NewUserService(db, store, hasher)
	m := metrics.New()

	s := NewHTTPServer(":0", logger, as, us, tokens, append([]Option{WithMetrics(m)}, opts...)...)
	return &testAPI{
		server:  s,
		handler: s.Router(),
		store:   store,
		users:   us,
		tokens:  tokens,
		queue:   queue,
		metrics: m,
		logs:    logs,
	}
}

// do sends body as JSON unless it is a string, which is sent verbatim.
func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (a *testAPI) signup(t *testing.T, email string) map[string]any {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": strongPassword, "passwordConfirmation": strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]any](t, rec)
}

func (a *testAPI) login(t *testing.T, email, password string) services.TokenPair {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[services.TokenPair](t, rec)
}

// adminToken seeds an admin account and logs it in.
func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	_, err := a.users.Create(context.Background(), services.CreateUserInput{
		Email: "admin@example.com", Password: strongPassword, Role: models.RoleAdmin, Verified: true,
	})
	require.NoError(t, err)
	return a.login(t, "admin@example.com", strongPassword).AccessToken
}
