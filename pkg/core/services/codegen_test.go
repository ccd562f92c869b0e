package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
)

func TestGenerateShortCode(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code, err := generateShortCode(domain.CodeLength)
		if err != nil {
			t.Fatal(err)
		}
		if !domain.IsValidCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = true
	}
	if len(seen) != 1000 {
		t.Errorf("expected 1000 distinct codes, got %d", len(seen))
	}
}

func TestGenerateUniqueSkipsStoredCodes(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	repo.Create(ctx, &domain.Link{Code: "aaaaaa", OwnerID: "o", Target: "https://a.example", UseLimit: 1, TTLHours: 1})
	repo.Create(ctx, &domain.Link{Code: "bbbbbb", OwnerID: "o", Target: "https://b.example", UseLimit: 1, TTLHours: 1})
	repo.MarkDeleted(ctx, "bbbbbb", t0)

	draws := []string{"aaaaaa", "bbbbbb", "cccccc"}
	g := NewCodeGenerator(repo)
	g.random = func(int) (string, error) {
		code := draws[0]
		draws = draws[1:]
		return code, nil
	}

	code, err := g.GenerateUnique(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// deleted codes stay reserved
	if code != "cccccc" {
		t.Errorf("GenerateUnique = %q, want cccccc", code)
	}
}

func TestGenerateUniqueGivesUp(t *testing.T) {
	repo := memory.NewRepository()
	repo.Create(context.Background(), &domain.Link{Code: "aaaaaa", OwnerID: "o", Target: "https://a.example", UseLimit: 1, TTLHours: 1})

	g := NewCodeGenerator(repo)
	g.random = func(int) (string, error) { return "aaaaaa", nil }

	_, err := g.GenerateUnique(context.Background())
	if !errors.Is(err, domain.ErrCodeSpaceExhausted) {
		t.Errorf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}
