package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/legacyapi"
	"github.com/pcagrad/cardvault/internal/scryfall"
	cardsync "github.com/pcagrad/cardvault/internal/sync"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// BulkImportCommand imports sets from the legacy bulk catalog API. It
// is meant for seeding a fresh database without paging through the
// search API.
type BulkImportCommand struct {
	DatabasePath string
	BaseURL      string
	SetCodes     string
	AllSets      bool
	Timeout      time.Duration
}

// NewBulkImportCommand creates a new BulkImportCommand
func NewBulkImportCommand() *BulkImportCommand {
	return &BulkImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *BulkImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("bulk-import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "./cardvault.db", "Path to the local database file")
	fs.StringVar(&cmd.BaseURL, "base-url", "https://api.magicthegathering.io/v1", "Legacy bulk catalog base URL")
	fs.StringVar(&cmd.SetCodes, "sets", "", "Comma-separated set codes to import (e.g. FIN,BLB)")
	fs.BoolVar(&cmd.AllSets, "all", false, "Import every set the bulk catalog knows")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Minute, "Overall timeout for the import")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s bulk-import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import card sets from the legacy bulk catalog API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s bulk-import -sets FIN\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s bulk-import -sets FIN,BLB -db ./cards.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s bulk-import -all\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.SetCodes == "" && !cmd.AllSets {
		return fmt.Errorf("either -sets or -all is required")
	}
	return nil
}

// Run executes the import
func (cmd *BulkImportCommand) Run() error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	client := legacyapi.NewClient(legacyapi.WithBaseURL(cmd.BaseURL))
	adapter := taxonomy.NewAdapter(db)
	service := cardsync.NewService(db, nil, adapter, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	codes, err := cmd.resolveCodes(ctx, client)
	if err != nil {
		return err
	}

	fmt.Printf("Importing %d set(s) from %s\n", len(codes), cmd.BaseURL)

	failed := 0
	for _, code := range codes {
		records, err := client.CardsForSet(ctx, code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: fetch failed: %v\n", code, err)
			failed++
			continue
		}
		saved, err := service.UpsertBatch(ctx, code, records, &scryfall.SetInfo{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: import failed: %v\n", code, err)
			failed++
			continue
		}
		fmt.Printf("  %s: %d of %d cards saved\n", code, saved, len(records))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sets failed to import", failed, len(codes))
	}
	fmt.Println("Import complete")
	return nil
}

func (cmd *BulkImportCommand) resolveCodes(ctx context.Context, client *legacyapi.Client) ([]string, error) {
	if !cmd.AllSets {
		var codes []string
		for _, code := range strings.Split(cmd.SetCodes, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, strings.ToUpper(code))
			}
		}
		return codes, nil
	}

	sets, err := client.Sets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	codes := make([]string, 0, len(sets))
	for _, set := range sets {
		codes = append(codes, set.Code)
	}
	return codes, nil
}
