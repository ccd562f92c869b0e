// Package repotest holds the behaviour every ports.LinkRepository
// implementation must share. Adapter tests call Run with a factory.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) ports.LinkRepository

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newLink(code, owner, target string) *domain.Link {
	return &domain.Link{
		Code:      code,
		Target:    target,
		OwnerID:   owner,
		UseLimit:  2,
		TTLHours:  24,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func Run(t *testing.T, factory Factory) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		link := newLink("abc123", "owner-1", "https://example.com")
		if err := repo.Create(ctx, link); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if link.ID == 0 {
			t.Error("Create did not assign an id")
		}

		got, err := repo.GetByCode(ctx, "abc123")
		if err != nil {
			t.Fatalf("GetByCode failed: %v", err)
		}
		if got == nil {
			t.Fatal("GetByCode returned nil")
		}
		if got.Target != link.Target || got.OwnerID != link.OwnerID || got.UseLimit != 2 || got.TTLHours != 24 {
			t.Errorf("unexpected link: %+v", got)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}

		missing, err := repo.GetByCode(ctx, "zzz999")
		if err != nil || missing != nil {
			t.Errorf("GetByCode(missing) = %v, %v; want nil, nil", missing, err)
		}
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://a.example")); err != nil {
			t.Fatal(err)
		}
		err := repo.Create(ctx, newLink("abc123", "owner-2", "https://b.example"))
		if !errors.Is(err, ports.ErrCodeTaken) {
			t.Errorf("expected ErrCodeTaken, got %v", err)
		}
	})

	t.Run("ActiveTargetUniqueness", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("aaaaaa", "owner-1", "https://example.com")); err != nil {
			t.Fatal(err)
		}
		err := repo.Create(ctx, newLink("bbbbbb", "owner-1", "https://example.com"))
		if !domain.IsConflict(err) {
			t.Errorf("expected conflict, got %v", err)
		}
		// another owner may shorten the same target
		if err := repo.Create(ctx, newLink("cccccc", "owner-2", "https://example.com")); err != nil {
			t.Errorf("other owner create failed: %v", err)
		}

		exists, err := repo.ExistsActiveTargetForOwner(ctx, "owner-1", "https://example.com")
		if err != nil || !exists {
			t.Errorf("ExistsActiveTargetForOwner = %v, %v; want true", exists, err)
		}

		ok, err := repo.MarkDeleted(ctx, "aaaaaa", base)
		if err != nil || !ok {
			t.Fatalf("MarkDeleted = %v, %v", ok, err)
		}
		exists, _ = repo.ExistsActiveTargetForOwner(ctx, "owner-1", "https://example.com")
		if exists {
			t.Error("deleted link still counts as active")
		}
		if err := repo.Create(ctx, newLink("dddddd", "owner-1", "https://example.com")); err != nil {
			t.Errorf("create after delete failed: %v", err)
		}
	})

	t.Run("SoftDeleteKeepsCodeReserved", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://example.com")); err != nil {
			t.Fatal(err)
		}
		if ok, _ := repo.MarkDeleted(ctx, "abc123", base.Add(time.Hour)); !ok {
			t.Fatal("first MarkDeleted should succeed")
		}
		if ok, _ := repo.MarkDeleted(ctx, "abc123", base.Add(2*time.Hour)); ok {
			t.Error("second MarkDeleted should report false")
		}

		got, _ := repo.GetByCode(ctx, "abc123")
		if got != nil {
			t.Error("deleted link is still visible")
		}
		exists, err := repo.ExistsByCode(ctx, "abc123")
		if err != nil || !exists {
			t.Errorf("ExistsByCode = %v, %v; want true", exists, err)
		}
		deleted, err := repo.GetAnyByCode(ctx, "abc123")
		if err != nil || deleted == nil || !deleted.Deleted || deleted.OwnerID != "owner-1" {
			t.Errorf("GetAnyByCode = %+v, %v; want the deleted link", deleted, err)
		}
		if missing, _ := repo.GetAnyByCode(ctx, "zzz999"); missing != nil {
			t.Errorf("GetAnyByCode(missing) = %+v; want nil", missing)
		}

		links, err := repo.Dump(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(links) != 1 || !links[0].Deleted {
			t.Errorf("Dump = %+v; want one deleted link", links)
		}
	})

	t.Run("IncrementUseCount", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://example.com")); err != nil {
			t.Fatal(err)
		}
		now := base.Add(time.Hour)

		got, err := repo.IncrementUseCount(ctx, "abc123", now)
		if err != nil || got == nil {
			t.Fatalf("increment 0 -> 1 = %+v, %v", got, err)
		}
		if got.UseCount != 1 || got.UseLimit != 2 || got.Target != "https://example.com" {
			t.Errorf("returned link = %+v; want count 1 of 2", got)
		}
		if got, _ = repo.IncrementUseCount(ctx, "abc123", now); got == nil || got.UseCount != 2 {
			t.Fatalf("increment 1 -> 2 = %+v", got)
		}
		if got, _ = repo.IncrementUseCount(ctx, "abc123", now); got != nil {
			t.Error("increment past the limit must fail")
		}

		stored, _ := repo.GetByCode(ctx, "abc123")
		if stored.UseCount != 2 {
			t.Errorf("UseCount = %d, want 2", stored.UseCount)
		}

		if got, err := repo.IncrementUseCount(ctx, "zzz999", now); err != nil || got != nil {
			t.Errorf("increment of missing code = %+v, %v; want nil, nil", got, err)
		}
	})

	t.Run("IncrementUseCountRespectsLifetime", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://a.example")); err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(ctx, newLink("def456", "owner-1", "https://b.example")); err != nil {
			t.Fatal(err)
		}

		// the expiry instant itself still redirects
		if got, _ := repo.IncrementUseCount(ctx, "abc123", base.Add(24*time.Hour)); got == nil {
			t.Error("increment at the expiry instant must succeed")
		}
		if got, _ := repo.IncrementUseCount(ctx, "abc123", base.Add(24*time.Hour+time.Second)); got != nil {
			t.Error("increment after expiry must fail")
		}

		repo.MarkDeleted(ctx, "def456", base)
		if got, _ := repo.IncrementUseCount(ctx, "def456", base); got != nil {
			t.Error("increment of a deleted link must fail")
		}
	})

	t.Run("UpdateFields", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://example.com")); err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(ctx, newLink("def456", "owner-1", "https://other.example")); err != nil {
			t.Fatal(err)
		}

		upd, _ := repo.GetByCode(ctx, "abc123")
		upd.Target = "https://new.example"
		upd.UseLimit = 5
		upd.TTLHours = 48
		upd.UpdatedAt = base.Add(time.Hour)

		stored, err := repo.UpdateFields(ctx, upd)
		if err != nil || stored == nil {
			t.Fatalf("UpdateFields = %+v, %v", stored, err)
		}
		if stored.Target != "https://new.example" || stored.UseLimit != 5 || stored.TTLHours != 48 {
			t.Errorf("returned link = %+v", stored)
		}

		got, _ := repo.GetByCode(ctx, "abc123")
		if got.Target != "https://new.example" || got.UseLimit != 5 || got.TTLHours != 48 {
			t.Errorf("unexpected link after update: %+v", got)
		}
		if !got.CreatedAt.Equal(base) {
			t.Error("update must not move CreatedAt")
		}

		clash, _ := repo.GetByCode(ctx, "abc123")
		clash.Target = "https://other.example"
		if _, err := repo.UpdateFields(ctx, clash); !domain.IsConflict(err) {
			t.Errorf("expected conflict on duplicate target, got %v", err)
		}
	})

	t.Run("UpdateFieldsBelowUseCount", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newLink("abc123", "owner-1", "https://example.com")); err != nil {
			t.Fatal(err)
		}
		repo.IncrementUseCount(ctx, "abc123", base)
		repo.IncrementUseCount(ctx, "abc123", base)

		upd, _ := repo.GetByCode(ctx, "abc123")
		upd.UseLimit = 1
		if stored, err := repo.UpdateFields(ctx, upd); err != nil || stored != nil {
			t.Errorf("limit below the use count = %+v, %v; want nil, nil", stored, err)
		}

		// equal to the count is allowed and leaves the link exhausted
		upd.UseLimit = 2
		if stored, _ := repo.UpdateFields(ctx, upd); stored == nil {
			t.Error("limit equal to the use count must be accepted")
		}

		repo.MarkDeleted(ctx, "abc123", base)
		upd.UseLimit = 10
		if stored, _ := repo.UpdateFields(ctx, upd); stored != nil {
			t.Error("update of a deleted link must fail")
		}
	})

	t.Run("FindExpired", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		short := newLink("aaaaaa", "owner-1", "https://a.example")
		short.TTLHours = 1
		long := newLink("bbbbbb", "owner-1", "https://b.example")
		long.TTLHours = 48
		gone := newLink("cccccc", "owner-1", "https://c.example")
		gone.TTLHours = 1
		for _, l := range []*domain.Link{short, long, gone} {
			if err := repo.Create(ctx, l); err != nil {
				t.Fatal(err)
			}
		}
		repo.MarkDeleted(ctx, "cccccc", base)

		// exactly at the boundary nothing is expired yet
		links, err := repo.FindExpired(ctx, base.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(links) != 0 {
			t.Errorf("at boundary got %d expired, want 0", len(links))
		}

		links, _ = repo.FindExpired(ctx, base.Add(25*time.Hour))
		if len(links) != 1 || links[0].Code != "aaaaaa" {
			t.Errorf("FindExpired = %+v; want only aaaaaa", links)
		}

		// a longer TTL pushes expiry out again
		upd, _ := repo.GetByCode(ctx, "aaaaaa")
		upd.TTLHours = 72
		if stored, _ := repo.UpdateFields(ctx, upd); stored == nil {
			t.Fatal("UpdateFields failed")
		}
		links, _ = repo.FindExpired(ctx, base.Add(25*time.Hour))
		if len(links) != 0 {
			t.Errorf("after TTL bump got %d expired, want 0", len(links))
		}
	})

	t.Run("Identities", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		id := &domain.Identity{ID: "7d0c9a4e-2b8c-4d4f-8d3a-0a5b1c2d3e4f", CreatedAt: base}
		if err := repo.SaveIdentity(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := repo.SaveIdentity(ctx, id); !errors.Is(err, ports.ErrIdentityTaken) {
			t.Errorf("expected ErrIdentityTaken, got %v", err)
		}

		got, err := repo.GetIdentity(ctx, id.ID)
		if err != nil || got == nil || got.ID != id.ID {
			t.Errorf("GetIdentity = %+v, %v", got, err)
		}
		missing, err := repo.GetIdentity(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("GetIdentity(missing) = %+v, %v", missing, err)
		}
		exists, _ := repo.ExistsIdentity(ctx, id.ID)
		if !exists {
			t.Error("ExistsIdentity = false")
		}
	})

	t.Run("Events", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		events := []*domain.LinkEvent{
			{Code: "abc123", OwnerID: "owner-1", Kind: domain.EventLimitReached, Detail: "2/2", CreatedAt: base},
			{Code: "abc123", OwnerID: "owner-1", Kind: domain.EventExpired, CreatedAt: base.Add(time.Hour)},
			{Code: "def456", OwnerID: "owner-1", Kind: domain.EventExpired, CreatedAt: base},
		}
		for _, e := range events {
			if err := repo.RecordEvent(ctx, e); err != nil {
				t.Fatal(err)
			}
		}

		got, err := repo.ListEvents(ctx, "abc123", "owner-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("ListEvents returned %d events, want 2", len(got))
		}
		if got[0].Kind != domain.EventLimitReached || got[1].Kind != domain.EventExpired {
			t.Errorf("unexpected order: %+v", got)
		}
		if got[0].Detail != "2/2" {
			t.Errorf("Detail = %q", got[0].Detail)
		}

		other, _ := repo.ListEvents(ctx, "abc123", "owner-2")
		if len(other) != 0 {
			t.Error("events leaked to another owner")
		}
	})
}
