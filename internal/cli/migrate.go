package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/taxonomy"
)

// MigrateCommand normalizes set types and translations on an existing
// database and prints a catalog health report.
type MigrateCommand struct {
	DatabasePath      string
	EnsureFlagshipFin bool
}

// NewMigrateCommand creates a new MigrateCommand
func NewMigrateCommand() *MigrateCommand {
	return &MigrateCommand{}
}

// ParseFlags parses command line flags
func (cmd *MigrateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "./cardvault.db", "Path to the local database file")
	fs.BoolVar(&cmd.EnsureFlagshipFin, "ensure-fin", false, "Create the FIN set if it is missing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s migrate [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Infer missing set types, seed missing translations and print a report.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the migration
func (cmd *MigrateCommand) Run() error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	adapter := taxonomy.NewAdapter(db)

	if cmd.EnsureFlagshipFin {
		if _, err := adapter.EnsureDistinguishedSet(); err != nil {
			return err
		}
	}

	report, err := adapter.MigrateExisting()
	if err != nil {
		return err
	}

	fmt.Println("Catalog report")
	fmt.Println("==============")
	fmt.Printf("  Sets:                     %d\n", report.TotalSets)
	fmt.Printf("  Set types:                %d\n", report.TotalTypes)
	fmt.Printf("  Sets without type:        %d\n", report.SetsWithoutType)
	fmt.Printf("  Sets without translation: %d\n", report.SetsWithoutTranslation)
	fmt.Printf("  FIN present:              %v\n", report.DistinguishedSetExists)
	fmt.Printf("  Completion:               %.1f%%\n", report.CompletionPercent)
	return nil
}
