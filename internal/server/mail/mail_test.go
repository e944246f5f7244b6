package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dajohi/goemail"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fixedNow() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestComposer_SignupVerification(t *testing.T) {
	job := NewComposer("Auth Service", fixedNow).SignupVerification("a@x.com", "u-1", "ABC123")

	assert.Equal(t, "a@x.com", job.To)
	assert.Equal(t, "Verify your account", job.Subject)
	assert.Equal(t, TemplateSignupVerification, job.Template)
	assert.Equal(t, "ABC123", job.Data["code"])
	assert.Equal(t, "u-1", job.Data["userId"])
	assert.Equal(t, "Auth Service", job.Data["appName"])
	assert.Equal(t, "2025", job.Data["year"])
}

func TestComposer_Welcome(t *testing.T) {
	job := NewComposer("Keeper", fixedNow).Welcome("a@x.com")

	assert.Equal(t, "Welcome to Keeper", job.Subject)
	assert.Equal(t, TemplateWelcome, job.Template)
	assert.Equal(t, "Keeper", job.Data["appName"])
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	job := NewComposer("Auth Service", fixedNow).SignupVerification("a@x.com", "u-1", "ABC123")
	body, err := r.Render(job.Template, job.Data)
	require.NoError(t, err)
	assert.Contains(t, body, "ABC123")
	assert.Contains(t, body, "© 2025 Auth Service")

	_, err = r.Render("nope", nil)
	require.Error(t, err)

	_, err = r.Render(TemplateWelcome, map[string]string{"email": "a@x.com"})
	require.Error(t, err, "missing appName must fail rendering")
}

func TestLogMailer_WritesRenderedBody(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	r, err := NewRenderer()
	require.NoError(t, err)

	job := NewComposer("Auth Service", fixedNow).Welcome("a@x.com")
	require.NoError(t, NewLogMailer(l, r).SendTemplate(context.Background(), job.To, job.Subject, job.Template, job.Data))

	out := buf.String()
	assert.Contains(t, out, "to=a@x.com")
	assert.Contains(t, out, "module=log_mailer")
	assert.Contains(t, out, "verified and ready")
}

type fakeSender struct {
	sent int
	err  error
}

func (f *fakeSender) Send(*goemail.Message) error {
	f.sent++
	return f.err
}

func TestSMTPMailer_SendTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	sender := &fakeSender{}
	m := &SMTPMailer{smtp: sender, renderer: r, from: "no-reply@auth-service.com", fromName: "Auth Service"}

	job := NewComposer("Auth Service", fixedNow).Welcome("a@x.com")
	require.NoError(t, m.SendTemplate(context.Background(), job.To, job.Subject, job.Template, job.Data))
	assert.Equal(t, 1, sender.sent)

	sender.err = errors.New("550 mailbox unavailable")
	err = m.SendTemplate(context.Background(), job.To, job.Subject, job.Template, job.Data)
	require.ErrorContains(t, err, "550 mailbox unavailable")

	err = m.SendTemplate(context.Background(), job.To, job.Subject, "missing", job.Data)
	require.Error(t, err)
	assert.Equal(t, 2, sender.sent, "render failures must not reach SMTP")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	sender := &fakeSender{}
	m := &SMTPMailer{smtp: sender}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.SendTemplate(ctx, "a@x.com", "s", TemplateWelcome, nil), context.Canceled)
	assert.Zero(t, sender.sent)
}

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  map[string]error
	block chan struct{}
}

func (m *recordingMailer) SendTemplate(ctx context.Context, to, subject, templateKey string, data map[string]string) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.fail[to]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	var logBuf syncBuffer
	l := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))
	m := &recordingMailer{fail: map[string]error{"bad@x.com": errors.New("smtp down")}}

	var hookMu sync.Mutex
	results := map[string]int{}
	d := NewDispatcher(m, l, 2, 10, WithResultHook(func(template string, err error) {
		hookMu.Lock()
		defer hookMu.Unlock()
		if err != nil {
			results["failed"]++
		} else {
			results["sent"]++
		}
	}))

	require.True(t, d.Enqueue(Job{To: "a@x.com", Template: TemplateWelcome}))
	require.True(t, d.Enqueue(Job{To: "b@x.com", Template: TemplateWelcome}))
	require.True(t, d.Enqueue(Job{To: "bad@x.com", Template: TemplateWelcome}))

	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 3, m.count())
	assert.Equal(t, map[string]int{"sent": 2, "failed": 1}, results)
	assert.Contains(t, logBuf.String(), "mail delivery failed")
	assert.Contains(t, logBuf.String(), "smtp down")

	assert.False(t, d.Enqueue(Job{To: "late@x.com"}), "closed dispatcher rejects jobs")
	require.NoError(t, d.Close(context.Background()), "Close is idempotent")
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := &recordingMailer{block: make(chan struct{})}
	d := NewDispatcher(m, logging.NewNopLogger(), 1, 1)

	accepted := 0
	for range 5 {
		if d.Enqueue(Job{To: "a@x.com"}) {
			accepted++
		}
	}
	// one job held by the blocked worker at most, one in the queue
	assert.LessOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, accepted, 1)

	close(m.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, accepted, m.count())
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	m := &recordingMailer{block: make(chan struct{})}
	d := NewDispatcher(m, logging.NewNopLogger(), 1, 1)
	require.True(t, d.Enqueue(Job{To: "a@x.com"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(m.block)
	require.NoError(t, d.Close(context.Background()))
}

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
	return strings.Clone(s.b.String())
}
