package services

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const strongPassword = "Str0ng!Pass"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
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

func (q *fakeQueue) all() []mail.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]mail.Job(nil), q.jobs...)
}

func (q *fakeQueue) last(t *testing.T) mail.Job {
	t.Helper()
	jobs := q.all()
	require.NotEmpty(t, jobs, "no mail enqueued")
	return jobs[len(jobs)-1]
}

// newTxDB returns a database that only serves transactions; the memory
// repositories ignore it.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		CodeLength:                   6,
		CodeValidityDuration:         time.Hour,
		AppName:                      "Auth Service",
	}
}

type testEnv struct {
	db     *sql.DB
	store  *memory.Store
	clock  *testClock
	queue  *fakeQueue
	tokens *auth.TokenManager
	codes  *CodeService
	auth   *AuthService
	users  *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := newTestClock()
	return newTestEnvWith(t, clk, memory.NewStore(clk.Now))
}

func newTestEnvWith(t *testing.T, clk *testClock, rm repomanager.RepositoryManager) *testEnv {
	t.Helper()
	cfg := testConfig()
	db := newTxDB(t)
	hasher := cryptox.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager(cfg.SecretKey, auth.WithClock(clk.Now))
	queue := &fakeQueue{}
	codes := NewCodeService(db, rm, cfg, WithClock(clk.Now))

	env := &testEnv{
		db:     db,
		clock:  clk,
		queue:  queue,
		tokens: tokens,
		codes:  codes,
		auth:   NewAuthService(db, rm, cfg, hasher, tokens, codes, queue, logging.NewNopLogger(), WithClock(clk.Now)),
		users:  NewUserService(db, rm, hasher),
	}
	if s, ok := rm.(*memory.Store); ok {
		env.store = s
	}
	return env
}

func requireCode(t *testing.T, err error, code, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, common.CodeOf(err), "error: %v", err)
	if msg != "" {
		assert.Equal(t, msg, err.Error())
	}
}
