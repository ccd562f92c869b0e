package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testLink() domain.Link {
	return domain.Link{
		Code:      "abc123",
		Target:    "https://example.com",
		OwnerID:   "owner-1",
		UseCount:  3,
		UseLimit:  3,
		TTLHours:  24,
		CreatedAt: now.Add(-time.Hour),
	}
}

// recorder collects notifications in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "limit:"+link.Code)
	return r.err
}

func (r *recorder) NotifyExpired(ctx context.Context, link domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "expired:"+link.Code)
	return r.err
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	if err := n.NotifyLimitReached(context.Background(), testLink()); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyExpired(context.Background(), testLink()); err != nil {
		t.Fatal(err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["owner_id"] != "owner-1" || fields["code"] != "abc123" || fields["use_limit"] != int64(3) {
		t.Errorf("unexpected limit fields: %v", fields)
	}
	if got := entries[1].ContextMap()["ttl_hours"]; got != int64(24) {
		t.Errorf("ttl_hours = %v, want 24", got)
	}
}

func TestStoreNotifier(t *testing.T) {
	repo := memory.NewRepository()
	n := NewStoreNotifier(repo, ports.FixedClock(now))
	ctx := context.Background()

	n.NotifyLimitReached(ctx, testLink())
	n.NotifyExpired(ctx, testLink())

	events, err := repo.ListEvents(ctx, "abc123", "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != domain.EventLimitReached || events[0].Detail != "use limit of 3 reached" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Kind != domain.EventExpired || !events[1].CreatedAt.Equal(now) {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

type fakePublisher struct {
	queue string
	body  []byte
	err   error
}

func (p *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	p.queue = queue
	p.body = body
	return p.err
}

func TestAMQPNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewAMQPNotifier(pub, "link-events", ports.FixedClock(now))

	if err := n.NotifyExpired(context.Background(), testLink()); err != nil {
		t.Fatal(err)
	}
	if pub.queue != "link-events" {
		t.Errorf("queue = %q", pub.queue)
	}

	var msg Message
	if err := json.Unmarshal(pub.body, &msg); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if msg.Kind != domain.EventExpired || msg.Code != "abc123" || msg.OwnerID != "owner-1" || !msg.OccurredAt.Equal(now) {
		t.Errorf("unexpected message: %+v", msg)
	}

	pub.err = errors.New("channel closed")
	if err := n.NotifyLimitReached(context.Background(), testLink()); !errors.Is(err, pub.err) {
		t.Errorf("expected publish error, got %v", err)
	}
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	failing := &recorder{err: errors.New("boom")}
	ok := &recorder{}
	m := Multi{failing, ok}

	err := m.NotifyLimitReached(context.Background(), testLink())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(multierr.Errors(err)) != 1 {
		t.Errorf("expected one error, got %v", err)
	}
	if got := ok.Calls(); len(got) != 1 || got[0] != "limit:abc123" {
		t.Errorf("second notifier calls = %v", got)
	}
}

func TestAsyncDeliversAndDrains(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 16, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 5; i++ {
		if err := a.NotifyExpired(ctx, testLink()); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	// a cancelled request context must not cancel delivery
	cancel()
	a.Close()

	if got := len(rec.Calls()); got != 5 {
		t.Errorf("delivered %d notifications, want 5", got)
	}
	if err := a.NotifyExpired(context.Background(), testLink()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	a.Close()
}

// blocker holds the worker until released.
type blocker struct {
	recorder
	release chan struct{}
}

func (b *blocker) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	<-b.release
	return b.recorder.NotifyLimitReached(ctx, link)
}

func TestAsyncDropsWhenFull(t *testing.T) {
	b := &blocker{release: make(chan struct{})}
	a := NewAsync(b, 1, zap.NewNop())

	var dropped int
	for i := 0; i < 10; i++ {
		if err := a.NotifyLimitReached(context.Background(), testLink()); errors.Is(err, ErrQueueFull) {
			dropped++
		}
	}
	close(b.release)
	a.Close()

	// at most one in flight plus one queued
	if dropped < 8 {
		t.Errorf("dropped %d notifications, want at least 8", dropped)
	}
	if delivered := len(b.Calls()); delivered+dropped != 10 {
		t.Errorf("delivered %d + dropped %d != 10", delivered, dropped)
	}
}
