package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ConflictError reports an insert rejected by the display-name uniqueness
// constraint. Callers can recover, typically by switching to an update.
type ConflictError struct {
	Table       string
	DisplayName string
	Err         error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %q already exists in table %s", e.DisplayName, e.Table)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an operation whose target row does not exist
type NotFoundError struct {
	Table       string
	ID          int64
	DisplayName string
}

func (e *NotFoundError) Error() string {
	if e.DisplayName != "" {
		return fmt.Sprintf("no record %q in table %s", e.DisplayName, e.Table)
	}
	return fmt.Sprintf("no record with ID %d in table %s", e.ID, e.Table)
}

// IsConflict reports whether err is a uniqueness conflict
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsNotFound reports whether err is a missing-row error
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// isUniqueViolation distinguishes uniqueness violations from the driver's
// other constraint errors. Foreign-key and CHECK violations must not map to
// ConflictError: callers recover from a conflict by switching to an update,
// which cannot fix a broken reference.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
