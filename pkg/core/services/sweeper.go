package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vogo/vogo/vsync/vrun"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const sweepLockKey = "limitlink:sweep:lock"

// Sweeper soft-deletes links whose lifetime is over
type Sweeper struct {
	repo     ports.LinkRepository
	notifier ports.Notifier
	locker   ports.Locker
	lockTTL  time.Duration

	clock   ports.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	runner *vrun.Runner
}

// NewSweeper builds a sweeper. locker may be nil when a single replica runs.
func NewSweeper(repo ports.LinkRepository, notifier ports.Notifier, locker ports.Locker, lockTTL time.Duration, opts ...Option) *Sweeper {
	o := buildOptions(opts)
	return &Sweeper{
		repo:     repo,
		notifier: notifier,
		locker:   locker,
		lockTTL:  lockTTL,
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Start runs Sweep every interval until Stop is called.
func (s *Sweeper) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner != nil {
		return
	}
	s.runner = vrun.New()
	s.runner.Interval(func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("expiry sweep finished with errors", zap.Error(err))
		}
	}, interval)

	s.logger.Info("expiry sweeper started", zap.Duration("interval", interval))
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner == nil {
		return
	}
	s.runner.Stop()
	s.runner = nil
	s.logger.Info("expiry sweeper stopped")
}

// Sweep marks every expired link deleted and notifies its owner. A failure
// on one link does not stop the others; all failures are returned combined.
func (s *Sweeper) Sweep(ctx context.Context) (ports.SweepResult, error) {
	var result ports.SweepResult

	if s.locker != nil {
		locked, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
		if err != nil {
			return result, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !locked {
			s.logger.Debug("expiry sweep skipped, another replica holds the lock")
			return result, nil
		}
		defer func() {
			// released even when the caller gave up on the sweep
			if err := s.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey); err != nil {
				s.logger.Warn("release sweep lock failed", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	now := s.clock.Now()

	links, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("find expired links: %w", err)
	}
	result.Scanned = len(links)

	var errs error
	for i := range links {
		link := links[i]

		marked, err := s.repo.MarkDeleted(ctx, link.Code, now)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("expire '%s': %w", link.Code, err))
			s.logger.Error("expire link failed", zap.String("code", link.Code), zap.Error(err))
			continue
		}
		if !marked {
			// deleted by its owner or by another sweep since the query
			continue
		}

		link.Deleted = true
		result.Expired++
		s.notifyExpired(ctx, link)
	}

	s.metrics.Sweep(result.Expired, result.Failed, time.Since(started).Seconds())
	s.logger.Info("expiry sweep done",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
	)
	return result, errs
}

func (s *Sweeper) notifyExpired(ctx context.Context, link domain.Link) {
	s.metrics.Notification(string(domain.EventExpired))
	if err := s.notifier.NotifyExpired(context.WithoutCancel(ctx), link); err != nil {
		s.logger.Warn("expiration notification failed", zap.String("code", link.Code), zap.Error(err))
	}
}

var _ ports.SweepService = (*Sweeper)(nil)
