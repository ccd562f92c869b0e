package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/limitlink/pkg/bootstrap"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/multierr"
)

const usage = "expected 'export', 'import', 'sweep' or 'token' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenSubject := tokenCmd.String("subject", "admin", "token subject")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "token lifetime")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if err := withRepository(cfg, func(repo ports.LinkRepository) error {
			return doExport(ctx, repo, os.Stdout)
		}); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := withRepository(cfg, func(repo ports.LinkRepository) error {
			count, err := doImport(ctx, repo, *importFile)
			log.Printf("Imported %d links", count)
			return err
		}); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	case "sweep":
		sweepCmd.Parse(os.Args[2:])
		doSweep(ctx, cfg)
	case "token":
		tokenCmd.Parse(os.Args[2:])
		token, expires, err := handler.IssueAdminToken([]byte(cfg.JWTSecret), *tokenSubject, *tokenTTL)
		if err != nil {
			log.Fatalf("Token failed: %v", err)
		}
		fmt.Println(token)
		log.Printf("Token for %s valid until %s", *tokenSubject, expires.Format(time.RFC3339))
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// withRepository opens the configured store for fn and closes it afterwards.
func withRepository(cfg *config.Config, fn func(ports.LinkRepository) error) (err error) {
	repo, closer, err := bootstrap.OpenRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	if closer != nil {
		defer func() {
			err = multierr.Append(err, closer.Close())
		}()
	}
	return fn(repo)
}

func doExport(ctx context.Context, repo ports.LinkRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

func doImport(ctx context.Context, repo ports.LinkRepository, filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	count := 0
	for _, l := range links {
		// Codes are unique across deleted links too
		exists, err := repo.ExistsByCode(ctx, l.Code)
		if err != nil {
			return count, fmt.Errorf("lookup %s: %w", l.Code, err)
		}
		if exists {
			log.Printf("Skipping existing code: %s", l.Code)
			continue
		}

		if err := ensureIdentity(ctx, repo, l.OwnerID, l.CreatedAt); err != nil {
			log.Printf("Failed to import owner of %s: %v", l.Code, err)
			continue
		}

		if err := repo.Create(ctx, &l); err != nil {
			log.Printf("Failed to import %s: %v", l.Code, err)
		} else {
			count++
		}
	}
	return count, nil
}

func ensureIdentity(ctx context.Context, repo ports.LinkRepository, id string, createdAt time.Time) error {
	exists, err := repo.ExistsIdentity(ctx, id)
	if err != nil || exists {
		return err
	}
	err = repo.SaveIdentity(ctx, &domain.Identity{ID: id, CreatedAt: createdAt})
	if errors.Is(err, ports.ErrIdentityTaken) {
		return nil
	}
	return err
}

func doSweep(ctx context.Context, cfg *config.Config) {
	app, err := bootstrap.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	result, err := app.Sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("Sweep finished with errors: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(result)
}
