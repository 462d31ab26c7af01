package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// A Migration is one ordered schema change: the statements that apply it
// and, when stepping back over it is supported, the statements that undo it.
type Migration struct {
	Up   []string
	Down []string
}

// Engine evolves a SQLite database through an ordered migration list. The
// recorded schema version is the database's user_version pragma and always
// equals the number of migrations applied, in order. The list is passed in
// explicitly; there is no package-global migration state.
type Engine struct {
	migrations []Migration
	logger     *slog.Logger
}

func NewEngine(migrations []Migration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{migrations: migrations, logger: logger}
}

// Version reads the schema version recorded in the database.
func (e *Engine) Version(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Goto migrates the database to the target version, forward or backward.
// Every statement in the jump and the user_version write commit in a single
// transaction: on any failure the schema and the recorded version are both
// left exactly as they were.
func (e *Engine) Goto(ctx context.Context, db *sql.DB, target int) error {
	if target < 0 || target > len(e.migrations) {
		return fmt.Errorf("%w: %d (have %d migrations)", ErrInvalidTargetVersion, target, len(e.migrations))
	}

	current, err := e.Version(ctx, db)
	if err != nil {
		return err
	}
	if current == target {
		e.logger.InfoContext(ctx, "schema already at target version", "version", target)
		return nil
	}

	var batch []string
	if target > current {
		for i := current; i < target; i++ {
			batch = append(batch, e.migrations[i].Up...)
		}
	} else {
		for i := current - 1; i >= target; i-- {
			if len(e.migrations[i].Down) == 0 {
				return fmt.Errorf("%w: migration %d has no down statements", ErrCannotRevertMigration, i+1)
			}
			batch = append(batch, e.migrations[i].Down...)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range batch {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
		}
	}

	// PRAGMA takes no bind parameters; target is already range-checked.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("record schema version %d: %w", target, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d -> %d: %w", current, target, err)
	}

	e.logger.InfoContext(ctx, "schema migrated", "from", current, "to", target)
	return nil
}

// ToLatest migrates the database forward through every defined migration.
func (e *Engine) ToLatest(ctx context.Context, db *sql.DB) error {
	return e.Goto(ctx, db, len(e.migrations))
}
