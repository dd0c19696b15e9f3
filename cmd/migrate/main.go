package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Getenv); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run разбирает аргументы и выполняет миграции в выбранном направлении.
func run(args []string, stdout io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		direction string
		steps     int
		dsn       string
	)
	fs.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	fs.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: OMS_POSTGRES_DSN)")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}

	direction = strings.ToLower(strings.TrimSpace(direction))
	switch direction {
	case "up", "down", "status":
	default:
		return errors.Errorf("unsupported direction: %s (use up|down|status)", direction)
	}
	if steps < 0 {
		return errors.New("steps must be non-negative")
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(getenv("OMS_POSTGRES_DSN"))
	}
	if dsn == "" {
		return errors.New("OMS_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "open postgres store")
	}
	defer store.Close()

	switch direction {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return errors.Wrap(err, "migrate up")
		}
	case "down":
		if steps == 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return errors.Wrap(err, "migrate down")
		}
	}

	state, err := store.MigrationStatus(ctx)
	if err != nil {
		return errors.Wrap(err, "migration status")
	}
	_, err = fmt.Fprintf(stdout, "migrate %s ok: version=%d applied=%d pending=%d\n",
		direction, state.Version, state.Applied, state.Pending())
	return err
}
