package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notifier closed")
)

type job struct {
	kind domain.EventKind
	link domain.Link
	ctx  context.Context
}

// Async hands notifications to a background worker so redirects and
// sweeps never wait on delivery. A full queue drops the notification.
type Async struct {
	next   ports.Notifier
	logger *zap.Logger
	queue  chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next ports.Notifier, size int, logger *zap.Logger) *Async {
	if size < 1 {
		size = 1
	}
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan job, size),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	return a.enqueue(ctx, domain.EventLimitReached, link)
}

func (a *Async) NotifyExpired(ctx context.Context, link domain.Link) error {
	return a.enqueue(ctx, domain.EventExpired, link)
}

func (a *Async) enqueue(ctx context.Context, kind domain.EventKind, link domain.Link) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- job{kind: kind, link: link, ctx: context.WithoutCancel(ctx)}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer a.wg.Done()

	for j := range a.queue {
		var err error
		switch j.kind {
		case domain.EventLimitReached:
			err = a.next.NotifyLimitReached(j.ctx, j.link)
		case domain.EventExpired:
			err = a.next.NotifyExpired(j.ctx, j.link)
		}
		if err != nil {
			a.logger.Warn("notification delivery failed",
				zap.String("kind", string(j.kind)),
				zap.String("code", j.link.Code),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}

var _ ports.Notifier = (*Async)(nil)
