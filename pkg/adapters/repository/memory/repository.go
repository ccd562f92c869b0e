package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// Repository keeps links, identities and events in process memory.
// Every check-and-set runs under one mutex, which gives the same
// atomicity as the conditional UPDATEs of the SQL stores.
type Repository struct {
	mu         sync.RWMutex
	nextID     int64
	links      map[string]*domain.Link // by code, deleted included
	identities map[string]domain.Identity
	events     []domain.LinkEvent
}

func NewRepository() *Repository {
	return &Repository{
		links:      make(map[string]*domain.Link),
		identities: make(map[string]domain.Identity),
	}
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok || link.Deleted {
		return nil, nil
	}
	cp := *link
	return &cp, nil
}

func (r *Repository) GetAnyByCode(ctx context.Context, code string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok {
		return nil, nil
	}
	cp := *link
	return &cp, nil
}

func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.links[code]
	return ok, nil
}

func (r *Repository) ExistsActiveTargetForOwner(ctx context.Context, ownerID, target string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeTargetLocked(ownerID, target, ""), nil
}

func (r *Repository) activeTargetLocked(ownerID, target, exceptCode string) bool {
	for _, l := range r.links {
		if !l.Deleted && l.OwnerID == ownerID && l.Target == target && l.Code != exceptCode {
			return true
		}
	}
	return false
}

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[link.Code]; ok {
		return ports.ErrCodeTaken
	}
	if !link.Deleted && r.activeTargetLocked(link.OwnerID, link.Target, "") {
		return fmt.Errorf("%w: user %s already has an active link to %s", domain.ErrConflict, link.OwnerID, link.Target)
	}

	r.nextID++
	link.ID = r.nextID
	cp := *link
	r.links[link.Code] = &cp
	return nil
}

func (r *Repository) IncrementUseCount(ctx context.Context, code string, now time.Time) (*domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok || link.Deleted || link.IsExpired(now) || link.LimitReached() {
		return nil, nil
	}
	link.UseCount++
	cp := *link
	return &cp, nil
}

func (r *Repository) UpdateFields(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.links[link.Code]
	if !ok || stored.Deleted || stored.UseCount > link.UseLimit {
		return nil, nil
	}
	if r.activeTargetLocked(stored.OwnerID, link.Target, stored.Code) {
		return nil, fmt.Errorf("%w: user %s already has an active link to %s", domain.ErrConflict, stored.OwnerID, link.Target)
	}

	stored.Target = link.Target
	stored.UseLimit = link.UseLimit
	stored.TTLHours = link.TTLHours
	stored.UpdatedAt = link.UpdatedAt
	cp := *stored
	return &cp, nil
}

func (r *Repository) MarkDeleted(ctx context.Context, code string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok || link.Deleted {
		return false, nil
	}
	link.Deleted = true
	link.UpdatedAt = at
	return true, nil
}

func (r *Repository) FindExpired(ctx context.Context, now time.Time) ([]domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Link
	for _, l := range r.links {
		if !l.Deleted && l.IsExpired(now) {
			out = append(out, *l)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Link, 0, len(r.links))
	for _, l := range r.links {
		out = append(out, *l)
	}
	sortByID(out)
	return out, nil
}

func (r *Repository) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (r *Repository) ExistsIdentity(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.identities[id]
	return ok, nil
}

func (r *Repository) SaveIdentity(ctx context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identity.ID]; ok {
		return ports.ErrIdentityTaken
	}
	r.identities[identity.ID] = *identity
	return nil
}

func (r *Repository) RecordEvent(ctx context.Context, event *domain.LinkEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, *event)
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, code, ownerID string) ([]domain.LinkEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.LinkEvent
	for _, e := range r.events {
		if e.Code == code && e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func sortByID(links []domain.Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
}

// Ensure interface compliance
var _ ports.LinkRepository = (*Repository)(nil)
