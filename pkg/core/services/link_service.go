package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

// maxCASAttempts bounds the re-read loop. A conditional write only fails
// when the link changed state (deleted, exhausted, expired, limit lowered),
// and the re-read then reports why, so the loop rarely goes past two passes.
const maxCASAttempts = 32

var ErrTooManyRetries = errors.New("link modified concurrently too many times")

// Defaults are applied when a create request omits limit or TTL
type Defaults struct {
	UseLimit int
	TTLHours int
}

// IdentityResolver resolves or mints caller identities
type IdentityResolver interface {
	Resolve(ctx context.Context, id string) (*domain.Identity, error)
}

// CodeSource hands out codes not yet stored
type CodeSource interface {
	GenerateUnique(ctx context.Context) (string, error)
}

type LinkService struct {
	repo       ports.LinkRepository
	identities IdentityResolver
	codes      CodeSource
	validator  *AccessValidator
	notifier   ports.Notifier
	defaults   Defaults

	clock   ports.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewLinkService(
	repo ports.LinkRepository,
	identities IdentityResolver,
	codes CodeSource,
	notifier ports.Notifier,
	defaults Defaults,
	opts ...Option,
) *LinkService {
	o := buildOptions(opts)
	return &LinkService{
		repo:       repo,
		identities: identities,
		codes:      codes,
		validator:  NewAccessValidator(repo),
		notifier:   notifier,
		defaults:   defaults,
		clock:      o.clock,
		logger:     o.logger,
		metrics:    o.metrics,
	}
}

func (s *LinkService) Create(ctx context.Context, in ports.CreateInput) (*domain.Link, error) {
	target := strings.TrimSpace(in.Target)
	params := domain.LinkParams{Target: &target, UseLimit: in.UseLimit, TTLHours: in.TTLHours}
	if err := domain.NewValidationError(domain.ErrInvalidInput, domain.CheckLinkParams(params, true)); err != nil {
		return nil, err
	}

	owner, err := s.identities.Resolve(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.CheckUniqueTargetForOwner(ctx, owner.ID, target); err != nil {
		return nil, err
	}

	useLimit := s.defaults.UseLimit
	if in.UseLimit != nil {
		useLimit = *in.UseLimit
	}
	ttlHours := s.defaults.TTLHours
	if in.TTLHours != nil {
		ttlHours = *in.TTLHours
	}

	// The store's unique constraint is the final word on codes; a lost race
	// between generation and insert just draws again.
	for i := 0; i < MaxCodeAttempts; i++ {
		code, err := s.codes.GenerateUnique(ctx)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		link := &domain.Link{
			Code:      code,
			Target:    target,
			OwnerID:   owner.ID,
			UseCount:  0,
			UseLimit:  useLimit,
			TTLHours:  ttlHours,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.repo.Create(ctx, link)
		if errors.Is(err, ports.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.LinkCreated()
		s.logger.Info("short link created",
			zap.String("code", link.Code),
			zap.String("owner_id", link.OwnerID),
			zap.String("target", link.Target),
			zap.Int("use_limit", link.UseLimit),
			zap.Int("ttl_hours", link.TTLHours),
		)
		return link, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, MaxCodeAttempts)
}

// Resolve returns the target for code and consumes one use of the link.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	for i := 0; i < maxCASAttempts; i++ {
		link, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			s.metrics.Redirect(metrics.ResultError)
			return "", err
		}
		if link == nil {
			s.metrics.Redirect(metrics.ResultNotFound)
			return "", fmt.Errorf("%w: short link '%s'", domain.ErrNotFound, code)
		}

		now := s.clock.Now()
		if err := s.validator.ValidateAccess(link, now); err != nil {
			if domain.IsExpired(err) {
				s.metrics.Redirect(metrics.ResultExpired)
			} else {
				s.metrics.Redirect(metrics.ResultLimitReached)
			}
			return "", err
		}

		used, err := s.repo.IncrementUseCount(ctx, code, now)
		if err != nil {
			s.metrics.Redirect(metrics.ResultError)
			return "", err
		}
		if used == nil {
			// deleted, expired or exhausted since the read
			continue
		}

		if used.UseCount == used.UseLimit {
			s.notifyLimitReached(ctx, *used)
		}

		s.metrics.Redirect(metrics.ResultOK)
		return used.Target, nil
	}

	s.metrics.Redirect(metrics.ResultError)
	return "", fmt.Errorf("redirect '%s': %w", code, ErrTooManyRetries)
}

func (s *LinkService) Update(ctx context.Context, in ports.UpdateInput) (*domain.Link, error) {
	params := domain.LinkParams{Target: in.Target, UseLimit: in.UseLimit, TTLHours: in.TTLHours}
	if err := domain.NewValidationError(domain.ErrInvalidInput, domain.CheckLinkParams(params, false)); err != nil {
		return nil, err
	}

	for i := 0; i < maxCASAttempts; i++ {
		link, err := s.getOwned(ctx, in.Code, in.RequesterID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		if err := s.validator.ValidateUpdate(link, in.TTLHours, in.UseLimit, now); err != nil {
			return nil, err
		}

		if in.Target != nil {
			target := strings.TrimSpace(*in.Target)
			if target != link.Target {
				if err := s.validator.CheckUniqueTargetForOwner(ctx, link.OwnerID, target); err != nil {
					return nil, err
				}
				link.Target = target
			}
		}
		if in.UseLimit != nil {
			link.UseLimit = *in.UseLimit
		}
		if in.TTLHours != nil {
			link.TTLHours = *in.TTLHours
		}
		link.UpdatedAt = now

		// The store refuses the write if redirects pushed the count past the
		// new limit after our read; the next pass re-validates.
		stored, err := s.repo.UpdateFields(ctx, link)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			continue
		}

		s.logger.Info("short link updated",
			zap.String("code", stored.Code),
			zap.String("target", stored.Target),
			zap.Int("use_limit", stored.UseLimit),
			zap.Int("ttl_hours", stored.TTLHours),
		)
		return stored, nil
	}

	return nil, fmt.Errorf("update '%s': %w", in.Code, ErrTooManyRetries)
}

func (s *LinkService) Delete(ctx context.Context, code, requesterID string) error {
	link, err := s.getOwned(ctx, code, requesterID)
	if err != nil {
		return err
	}

	ok, err := s.repo.MarkDeleted(ctx, link.Code, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: short link '%s'", domain.ErrNotFound, code)
	}

	s.logger.Info("short link deleted", zap.String("code", code), zap.String("owner_id", requesterID))
	return nil
}

// Events lists the notifications recorded for the caller's link. Deleted
// links keep their history.
func (s *LinkService) Events(ctx context.Context, code, requesterID string) ([]domain.LinkEvent, error) {
	link, err := s.repo.GetAnyByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("%w: short link '%s'", domain.ErrNotFound, code)
	}
	if err := s.validator.CheckOwnership(link, requesterID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, code, requesterID)
}

func (s *LinkService) getOwned(ctx context.Context, code, requesterID string) (*domain.Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("%w: short link '%s'", domain.ErrNotFound, code)
	}
	if err := s.validator.CheckOwnership(link, requesterID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *LinkService) notifyLimitReached(ctx context.Context, link domain.Link) {
	s.metrics.Notification(string(domain.EventLimitReached))
	if err := s.notifier.NotifyLimitReached(context.WithoutCancel(ctx), link); err != nil {
		s.logger.Warn("limit reached notification failed",
			zap.String("code", link.Code),
			zap.Error(err),
		)
	}
}

var _ ports.LinkService = (*LinkService)(nil)
