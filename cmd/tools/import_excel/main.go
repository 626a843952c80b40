package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"project-ledger-api/internal/config"
	ledgerlog "project-ledger-api/internal/log"
	"project-ledger-api/internal/store"
	"project-ledger-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "Path to the .xlsx workbook")
		mappingPath = flag.String("mapping", "", "Column mapping YAML (default: built-in)")
		dryRun      = flag.Bool("dry-run", false, "Validate without writing")
		maxErrors   = flag.Int("max-errors", 50, "Stop after this many row errors")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_excel --file=path.xlsx [--mapping=configs/mapping/projects.yaml] [--dry-run]")
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()

	mapping, err := importer.LoadMapping(*mappingPath)
	if err != nil {
		log.Fatalf("Failed to load mapping: %v", err)
	}

	ctx := context.Background()
	if cfg.AutoMigrate {
		if err := store.Migrate(cfg.DBDriver, cfg.DBDSN); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN, ledgerlog.Discard())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	file, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("Failed to open Excel file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing projects from %s (dry_run=%v)\n", *filePath, *dryRun)
	fmt.Println("=" + strings.Repeat("=", 60))

	summary, err := importer.ImportExcel(ctx, db, file, importer.ImportOptions{
		Mapping:   mapping,
		DryRun:    *dryRun,
		MaxErrors: *maxErrors,
	})
	printSummary(summary)

	if err != nil {
		if errors.Is(err, importer.ErrRowErrors) {
			fmt.Println("\nNothing was written: fix the rows above and retry.")
			os.Exit(2)
		}
		log.Fatalf("Import failed: %v", err)
	}
}

func printSummary(summary importer.ImportSummary) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("IMPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Total parsed: %d\n", summary.Parsed)
	fmt.Printf("Total inserted: %d\n", summary.Inserted)
	fmt.Printf("Total skipped: %d\n", summary.Skipped)
	fmt.Printf("Total errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)

	if len(summary.Sheets) > 0 {
		fmt.Println("\nSheet Details:")
		for _, sheet := range summary.Sheets {
			fmt.Printf("  %s: parsed=%d, skipped=%d, errors=%d\n",
				sheet.Name, sheet.Parsed, sheet.Skipped, sheet.Errors)

			if len(sheet.Samples) > 0 {
				fmt.Printf("    Error samples:\n")
				for _, sample := range sheet.Samples {
					fmt.Printf("      Row %d: %s\n", sample.Row, sample.Message)
				}
			}
		}
	}
}
