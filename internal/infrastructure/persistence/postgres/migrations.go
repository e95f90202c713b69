package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

// RunMigrations applies *.up.sql files from dir in name order, each in its own
// transaction, and records them in the migrations table. An empty dir is a
// no-op: the production schema is owned elsewhere.
func RunMigrations(ctx context.Context, conn *Connection, dir string, log *logger.Logger) error {
	if dir == "" {
		log.Info("No migrations path configured, skipping migrations")
		return nil
	}

	db := conn.GetDB()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(err, "create migrations table")
	}

	rows, err := db.QueryContext(ctx, "SELECT name FROM migrations")
	if err != nil {
		return errors.Wrap(err, "query migrations table")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read migrations directory %s", dir)
	}

	var migrations []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrations = append(migrations, file.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		if applied[migration] {
			log.Debug("Migration already applied", "migration", migration)
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, migration))
		if err != nil {
			return errors.Wrapf(err, "read migration %s", migration)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin migration transaction")
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute migration %s", migration)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (name) VALUES ($1)", migration); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record migration %s", migration)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit migration %s", migration)
		}

		log.Info("Applied migration", "migration", migration)
	}

	return nil
}
