package storage

import "errors"

var (
	// ErrNoRows signals a lookup against a ledger entity that does not
	// exist. Callers map it to their own not-found behavior.
	ErrNoRows = errors.New("query returned no rows")

	// ErrInvalidTargetVersion means a migration target outside the range of
	// defined migrations was requested.
	ErrInvalidTargetVersion = errors.New("migration target version out of range")

	// ErrCannotRevertMigration means a backward step was requested over a
	// migration that defines no down statements.
	ErrCannotRevertMigration = errors.New("migration cannot be reverted")
)
