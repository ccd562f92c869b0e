package sqlite

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/repotest"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

var dbSeq atomic.Int64

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbURL := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	repo, err := NewSQLiteRepository(dbURL)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) ports.LinkRepository {
		return newTestRepository(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	if err := migrate(repo.db); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}
