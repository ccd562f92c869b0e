package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

const maxIdentityAttempts = 10

// IdentityService resolves caller identities, minting new ones on demand
type IdentityService struct {
	repo  ports.LinkRepository
	clock ports.Clock
	known *lru.Cache[string, domain.Identity]
	newID func() string
}

// NewIdentityService caches up to cacheSize known identities. Identities
// are never deleted, so a cache hit needs no store round trip.
func NewIdentityService(repo ports.LinkRepository, clock ports.Clock, cacheSize int) (*IdentityService, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, domain.Identity](cacheSize)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = ports.SystemClock
	}
	return &IdentityService{
		repo:  repo,
		clock: clock,
		known: cache,
		newID: func() string { return uuid.New().String() },
	}, nil
}

// Resolve looks up id, or creates a fresh identity when id is empty.
func (s *IdentityService) Resolve(ctx context.Context, id string) (*domain.Identity, error) {
	if id == "" {
		return s.create(ctx)
	}

	if identity, ok := s.known.Get(id); ok {
		return &identity, nil
	}

	identity, err := s.repo.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}

	s.known.Add(identity.ID, *identity)
	return identity, nil
}

func (s *IdentityService) create(ctx context.Context) (*domain.Identity, error) {
	for i := 0; i < maxIdentityAttempts; i++ {
		id := s.newID()

		exists, err := s.repo.ExistsIdentity(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		identity := &domain.Identity{ID: id, CreatedAt: s.clock.Now()}
		if err := s.repo.SaveIdentity(ctx, identity); err != nil {
			if errors.Is(err, ports.ErrIdentityTaken) {
				continue
			}
			return nil, err
		}

		s.known.Add(identity.ID, *identity)
		return identity, nil
	}
	return nil, fmt.Errorf("unable to allocate a unique identity after %d attempts", maxIdentityAttempts)
}
