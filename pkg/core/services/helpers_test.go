package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// testClock is a clock the test moves by hand.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier remembers every notification it receives.
type recordingNotifier struct {
	mu      sync.Mutex
	limit   []domain.Link
	expired []domain.Link
	err     error
}

func (n *recordingNotifier) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.limit = append(n.limit, link)
	return n.err
}

func (n *recordingNotifier) NotifyExpired(ctx context.Context, link domain.Link) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, link)
	return n.err
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.limit), len(n.expired)
}

type fixture struct {
	repo     *memory.Repository
	clock    *testClock
	notifier *recordingNotifier
	service  *LinkService
	sweeper  *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memory.NewRepository()
	clock := newTestClock(t0)
	notifier := &recordingNotifier{}

	identities, err := NewIdentityService(repo, clock, 16)
	if err != nil {
		t.Fatal(err)
	}
	service := NewLinkService(repo, identities, NewCodeGenerator(repo), notifier,
		Defaults{UseLimit: 10, TTLHours: 24}, WithClock(clock))
	sweeper := NewSweeper(repo, notifier, nil, time.Minute, WithClock(clock))

	return &fixture{repo: repo, clock: clock, notifier: notifier, service: service, sweeper: sweeper}
}

// slowRepo adds store latency so concurrent callers overlap.
type slowRepo struct {
	*memory.Repository
	delay time.Duration
}

func (r *slowRepo) GetByCode(ctx context.Context, code string) (*domain.Link, error) {
	time.Sleep(r.delay)
	return r.Repository.GetByCode(ctx, code)
}

func (r *slowRepo) IncrementUseCount(ctx context.Context, code string, now time.Time) (*domain.Link, error) {
	time.Sleep(r.delay)
	return r.Repository.IncrementUseCount(ctx, code, now)
}

func (r *slowRepo) UpdateFields(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	time.Sleep(r.delay)
	return r.Repository.UpdateFields(ctx, link)
}

// newSlowService builds a link service over a memory store with latency.
func newSlowService(t *testing.T, clock ports.Clock, notifier ports.Notifier) (*slowRepo, *LinkService) {
	t.Helper()

	repo := &slowRepo{Repository: memory.NewRepository(), delay: time.Millisecond}
	identities, err := NewIdentityService(repo, clock, 16)
	if err != nil {
		t.Fatal(err)
	}
	service := NewLinkService(repo, identities, NewCodeGenerator(repo), notifier,
		Defaults{UseLimit: 10, TTLHours: 24}, WithClock(clock))
	return repo, service
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
