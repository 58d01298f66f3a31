package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const migrationsDir = "migrations"

// RunMigrations applies every .sql file under ./migrations in lexical order.
// Scripts are re-executed on each boot, so the schema and seed statements are
// written to be idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		scripts = append(scripts, entry.Name())
	}
	sort.Strings(scripts)

	for _, script := range scripts {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, script))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", script, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", script, err)
		}
		logger.Info("migration applied", zap.String("script", script))
	}

	logger.Info("schema up to date", zap.Int("scripts", len(scripts)))
	return nil
}
