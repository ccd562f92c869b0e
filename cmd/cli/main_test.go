package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	src := &config.Config{DatabaseURL: "file:" + filepath.Join(dir, "src.sqlite")}
	var dump bytes.Buffer
	var kept ports.LinkRepository
	err := withRepository(src, func(repo ports.LinkRepository) error {
		kept = repo
		owner := &domain.Identity{ID: "7d0c9a4e-2b8c-4d4f-8d3a-0a5b1c2d3e4f", CreatedAt: created}
		if err := repo.SaveIdentity(ctx, owner); err != nil {
			return err
		}
		for _, code := range []string{"aaaaaa", "bbbbbb"} {
			link := &domain.Link{Code: code, OwnerID: owner.ID, Target: "https://" + code + ".example",
				UseCount: 1, UseLimit: 5, TTLHours: 24, CreatedAt: created, UpdatedAt: created}
			if err := repo.Create(ctx, link); err != nil {
				return err
			}
		}
		repo.MarkDeleted(ctx, "bbbbbb", created)
		return doExport(ctx, repo, &dump)
	})
	if err != nil {
		t.Fatal(err)
	}

	// the store is closed once the command is done with it
	if _, err := kept.Dump(ctx); err == nil {
		t.Error("repository still open after withRepository returned")
	}

	file := filepath.Join(dir, "links.json")
	if err := os.WriteFile(file, dump.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	dst := &config.Config{DatabaseURL: "file:" + filepath.Join(dir, "dst.sqlite")}
	err = withRepository(dst, func(repo ports.LinkRepository) error {
		count, err := doImport(ctx, repo, file)
		if err != nil {
			return err
		}
		if count != 2 {
			t.Errorf("imported %d links, want 2", count)
		}

		// a second import skips codes already present
		if count, _ := doImport(ctx, repo, file); count != 0 {
			t.Errorf("re-import added %d links, want 0", count)
		}

		links, err := repo.Dump(ctx)
		if err != nil {
			return err
		}
		if len(links) != 2 || links[0].UseCount != 1 || !links[1].Deleted {
			t.Errorf("imported links = %+v", links)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithRepositoryReturnsCallbackError(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "memory://"}
	want := errors.New("boom")
	if err := withRepository(cfg, func(ports.LinkRepository) error { return want }); !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
}
