package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"project-ledger-api/internal/config"
	"project-ledger-api/internal/store"
)

const usage = `Usage: migrate [--dsn=...] [--driver=pgx|postgres] <command>

Commands:
  up         apply all pending migrations
  down       roll back all migrations
  steps N    apply N migrations (negative N rolls back)
  version    print the applied schema version`

func main() {
	dsn := flag.String("dsn", "", "Database DSN (overrides DB_DSN)")
	driver := flag.String("driver", "", "database/sql driver (overrides DB_DRIVER)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()
	if *dsn != "" {
		cfg.DBDSN = *dsn
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}

	m, err := store.NewMigrator(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("Failed to open migrator: ", err)
	}
	defer m.Close()

	if err := run(m, flag.Args()); err != nil {
		m.Close()
		log.Fatal(err)
	}
}

func run(m *store.Migrator, args []string) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
	case "steps":
		if len(args) < 2 {
			return fmt.Errorf("steps requires a count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[1], err)
		}
		if err := m.Steps(n); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}

	v, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Printf("schema version: %d (dirty=%v)\n", v, dirty)
	return nil
}
