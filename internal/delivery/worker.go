// Package delivery runs the asynchronous confirmation-code dispatch pool.
//
// Registration and resend only hand a Task to Enqueue and move on: delivery
// happens on independent worker goroutines, failures are retried and logged
// here, and nothing ever propagates back to the request that enqueued the
// task. Semantics are at-least-once with no ordering guarantee — a user who
// learns the code before the email lands can verify immediately.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Task is a fire-and-forget unit of work: get this code to this user.
type Task struct {
	UserID  string
	Email   string
	Phone   string
	Code    string
	Channel Channel
}

// Queue accepts tasks without blocking the caller.
type Queue interface {
	Enqueue(Task)
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
)

// Pool consumes tasks from a bounded queue with a fixed set of workers.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup

	mailer Mailer
	sms    SMSSender
	log    *slog.Logger

	maxAttempts int
	backoff     time.Duration

	// mu orders Enqueue's send against Stop's close of the channel.
	mu      sync.RWMutex
	stopped bool
}

// NewPool starts workers goroutines consuming from a queue of queueSize.
// A nil smsSender disables the SMS channel (tasks for it fail and are logged).
func NewPool(mailer Mailer, smsSender SMSSender, workers, queueSize int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{
		tasks:       make(chan Task, queueSize),
		mailer:      mailer,
		sms:         smsSender,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Enqueue submits a task and returns immediately. When the queue is full or
// the pool is stopping the task is dropped with a warning — the user can
// always request a resend, so dropping beats blocking a request handler.
func (p *Pool) Enqueue(t Task) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.log.Warn("delivery pool stopped, dropping task", "user_id", t.UserID, "channel", t.Channel)
		return
	}
	select {
	case p.tasks <- t:
	default:
		p.log.Warn("delivery queue full, dropping task", "user_id", t.UserID, "channel", t.Channel)
	}
}

// Stop drains the queue and waits for in-flight deliveries, up to ctx's
// deadline. Tasks enqueued after Stop are dropped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.deliver(t)
	}
}

// deliver attempts the task with retries. Errors never escape: the worker's
// policy is retry-then-log, and the originating request has long since been
// answered.
func (p *Pool) deliver(t Task) {
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err = p.send(t)
		if err == nil {
			p.log.Info("confirmation code delivered", "user_id", t.UserID, "channel", t.Channel, "attempt", attempt)
			return
		}
		p.log.Warn("delivery attempt failed", "user_id", t.UserID, "channel", t.Channel, "attempt", attempt, "err", err)
		if attempt < p.maxAttempts {
			time.Sleep(p.backoff * time.Duration(attempt))
		}
	}
	p.log.Error("giving up on delivery task", "user_id", t.UserID, "channel", t.Channel, "err", err)
}

func (p *Pool) send(t Task) error {
	switch t.Channel {
	case ChannelSMS:
		if p.sms == nil {
			return fmt.Errorf("sms channel not configured")
		}
		return p.sms.SendSMS(context.Background(), t.Phone, "Your confirmation code: "+t.Code)
	default:
		body := fmt.Sprintf("Hello,\r\n\r\nYour confirmation code is %s. It expires shortly, so enter it soon.\r\n", t.Code)
		return p.mailer.SendEmail(t.Email, "Confirm your account", body)
	}
}
