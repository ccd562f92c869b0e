package postgres

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/repotest"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

func TestTranslateError(t *testing.T) {
	link := &domain.Link{Code: "abc123", OwnerID: "owner-1", Target: "https://example.com"}
	other := errors.New("connection reset")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "code taken",
			err:   &pgconn.PgError{Code: uniqueViolation, ConstraintName: codeConstraint},
			check: func(err error) bool { return errors.Is(err, ports.ErrCodeTaken) },
		},
		{
			name:  "wrapped owner target",
			err:   fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: ownerTargetConstraint}),
			check: domain.IsConflict,
		},
		{
			name:  "other violation passes through",
			err:   &pgconn.PgError{Code: "23503", ConstraintName: codeConstraint},
			check: func(err error) bool { return !errors.Is(err, ports.ErrCodeTaken) && !domain.IsConflict(err) },
		},
		{
			name:  "plain error",
			err:   other,
			check: func(err error) bool { return err == other },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateError(tt.err, link); !tt.check(got) {
				t.Errorf("translateError(%v) = %v", tt.err, got)
			}
		})
	}
}

func TestModelRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	link := &domain.Link{
		ID: 7, Code: "abc123", Target: "https://example.com", OwnerID: "owner-1",
		UseCount: 3, UseLimit: 5, TTLHours: 2, CreatedAt: created, UpdatedAt: created,
	}

	model := fromLink(link)
	if !model.ExpiresAt.Equal(created.Add(2 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", model.ExpiresAt)
	}
	if got := model.toLink(); *got != *link {
		t.Errorf("toLink() = %+v, want %+v", got, link)
	}
}

// TestRepository runs the shared store behaviour against a live database
// when LIMITLINK_TEST_POSTGRES_URL is set.
func TestRepository(t *testing.T) {
	dsn := os.Getenv("LIMITLINK_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("LIMITLINK_TEST_POSTGRES_URL not set")
	}

	repotest.Run(t, func(t *testing.T) ports.LinkRepository {
		repo, err := NewRepository(dsn)
		if err != nil {
			t.Fatalf("Failed to init db: %v", err)
		}
		if err := repo.db.Exec("TRUNCATE links, identities, link_events RESTART IDENTITY").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}
