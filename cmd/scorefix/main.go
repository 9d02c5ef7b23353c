// Command scorefix repairs leaderboard rows left with missing or non-finite
// values by older writers, so the leaderboard can rank them again.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/ledgerquiz/internal/config"
	"github.com/mind-engage/ledgerquiz/internal/db"
	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/logging"
	"github.com/mind-engage/ledgerquiz/internal/store"
	syncx "github.com/mind-engage/ledgerquiz/internal/sync"
)

func main() {
	cfg := config.FromEnv()
	driver := flag.String("db-driver", cfg.DBDriver, "sqlite|postgres")
	dsn := flag.String("db-dsn", cfg.DBDSN, "database DSN (driver default when empty)")
	dryRun := flag.Bool("dry-run", false, "report fixes without writing")
	flag.Parse()

	log, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fixed, err := repair(ctx, log, db.Driver(*driver), *dsn, *dryRun)
	if err != nil {
		log.Fatal("scorefix failed", zap.Error(err))
	}
	log.Info("scorefix done", zap.Int("fixes", fixed), zap.Bool("dry_run", *dryRun))
}

func repair(ctx context.Context, log *zap.Logger, driver db.Driver, dsn string, dryRun bool) (int, error) {
	dbh, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return 0, fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	st := store.NewSQLStore(dbh)
	recs, err := st.ListScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scores: %w", err)
	}
	fixed := leaderboard.Repair(recs)
	log.Info("scanned scores", zap.Int("rows", len(recs)), zap.Int("fixes", fixed))
	if fixed == 0 || dryRun {
		return fixed, nil
	}
	if err := st.ReplaceScores(ctx, recs); err != nil {
		return 0, fmt.Errorf("rewrite scores: %w", err)
	}
	ev := syncx.NewEvent(syncx.TypeScoresRepaired, "scores", map[string]int{"rows": len(recs), "fixes": fixed})
	if err := syncx.NewEventRepo(dbh).Append(ctx, ev); err != nil {
		log.Warn("audit append failed", zap.Error(err))
	}
	return fixed, nil
}
