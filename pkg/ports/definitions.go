package ports

import (
	"context"
	"errors"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
)

var (
	// ErrCodeTaken is returned by LinkRepository.Create when the code is already stored.
	ErrCodeTaken = errors.New("code already taken")
	// ErrIdentityTaken is returned by SaveIdentity when the id is already stored.
	ErrIdentityTaken = errors.New("identity already taken")
)

// LinkRepository defines storage operations for links and identities
type LinkRepository interface {
	// GetByCode returns the non-deleted link for code, or (nil, nil).
	GetByCode(ctx context.Context, code string) (*domain.Link, error)
	// GetAnyByCode is GetByCode with soft-deleted links included.
	GetAnyByCode(ctx context.Context, code string) (*domain.Link, error)
	// ExistsByCode checks every stored link, deleted ones included.
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsActiveTargetForOwner(ctx context.Context, ownerID, target string) (bool, error)
	// Create fails with ErrCodeTaken or domain.ErrConflict on uniqueness violations.
	Create(ctx context.Context, link *domain.Link) error
	// IncrementUseCount consumes one use in a single conditional write: the
	// link must not be deleted, not be expired at now and be below its limit.
	// It returns the link as stored after the increment, or (nil, nil) when
	// no use was consumed.
	IncrementUseCount(ctx context.Context, code string, now time.Time) (*domain.Link, error)
	// UpdateFields writes target, use limit and TTL if the link is not deleted
	// and its stored use count does not exceed the new limit. It returns the
	// stored link, or (nil, nil) when that condition failed.
	UpdateFields(ctx context.Context, link *domain.Link) (*domain.Link, error)
	// MarkDeleted soft-deletes a link; false means it was already deleted or absent.
	MarkDeleted(ctx context.Context, code string, at time.Time) (bool, error)
	// FindExpired lists non-deleted links whose lifetime ended before now.
	FindExpired(ctx context.Context, now time.Time) ([]domain.Link, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration

	// Identities
	GetIdentity(ctx context.Context, id string) (*domain.Identity, error)
	ExistsIdentity(ctx context.Context, id string) (bool, error)
	SaveIdentity(ctx context.Context, identity *domain.Identity) error

	// Events
	RecordEvent(ctx context.Context, event *domain.LinkEvent) error
	ListEvents(ctx context.Context, code, ownerID string) ([]domain.LinkEvent, error)
}

// Notifier receives best-effort link notifications
type Notifier interface {
	NotifyLimitReached(ctx context.Context, link domain.Link) error
	NotifyExpired(ctx context.Context, link domain.Link) error
}

// Clock is injected wherever TTL math happens
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = clockFunc(func() time.Time { return time.Now().UTC() })

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return clockFunc(func() time.Time { return t })
}

// Locker serializes work across replicas
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// CreateInput carries the create request; nil pointers mean "use the default".
type CreateInput struct {
	RequesterID string
	Target      string
	UseLimit    *int
	TTLHours    *int
}

// UpdateInput carries a partial update; nil pointers are left untouched.
type UpdateInput struct {
	Code        string
	RequesterID string
	Target      *string
	UseLimit    *int
	TTLHours    *int
}

// LinkService defines the business logic operations
type LinkService interface {
	Create(ctx context.Context, in CreateInput) (*domain.Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	Update(ctx context.Context, in UpdateInput) (*domain.Link, error)
	Delete(ctx context.Context, code, requesterID string) error
	Events(ctx context.Context, code, requesterID string) ([]domain.LinkEvent, error)
}

// SweepService defines the expiry sweep
type SweepService interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}
