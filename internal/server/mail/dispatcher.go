package mail

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// ResultHook observes the outcome of every delivery attempt.
type ResultHook func(template string, err error)

// Dispatcher delivers mail jobs on a fixed pool of workers, detached from
// the request that produced them. Delivery failures are logged and never
// reach the caller.
type Dispatcher struct {
	mailer  Mailer
	logger  logging.Logger
	jobs    chan Job
	timeout time.Duration
	hook    ResultHook

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) { ds.timeout = d }
}

// WithResultHook registers a callback run after each attempt.
func WithResultHook(h ResultHook) DispatcherOption {
	return func(ds *Dispatcher) { ds.hook = h }
}

// NewDispatcher starts workers goroutines reading from a queue of queueSize
// jobs. Close must be called to stop them.
func NewDispatcher(m Mailer, l logging.Logger, workers, queueSize int, opts ...DispatcherOption) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		mailer:  m,
		logger:  l.With("module", "mail_dispatcher"),
		jobs:    make(chan Job, queueSize),
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}

	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

// Enqueue hands a job to the workers without blocking. It reports false
// when the queue is full or the dispatcher is closed; the job is dropped and
// logged.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn(context.Background(), "mail dropped: dispatcher closed", "to", job.To, "template", job.Template)
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn(context.Background(), "mail dropped: queue full", "to", job.To, "template", job.Template)
		return false
	}
}

// Close stops accepting jobs, lets the workers drain the queue and waits
// for them or for ctx, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.mailer.SendTemplate(ctx, job.To, job.Subject, job.Template, job.Data)
	if err != nil {
		logging.LogError(ctx, d.logger, "mail delivery failed", err, "to", job.To, "template", job.Template)
	} else {
		d.logger.Debug(ctx, "mail delivered", "to", job.To, "template", job.Template)
	}
	if d.hook != nil {
		d.hook(job.Template, err)
	}
}
