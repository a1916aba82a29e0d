package models

import (
	"errors"
	"fmt"
)

// Schema errors abort model loading entirely; there is no partial model.
var (
	ErrUnknownKind    = errors.New("unknown field kind")
	ErrTableNotFound  = errors.New("table not found in data model")
	ErrTableAmbiguous = errors.New("several tables with the same name in data model")
	ErrFieldNotFound  = errors.New("field not found in table")
	ErrFieldAmbiguous = errors.New("several fields with the same name in table")
)

// ValidationError reports a value rejected by its field's validator.
// The record it belongs to is never constructed.
type ValidationError struct {
	Table string
	Field string
	Value interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("value %v is not acceptable for field %s in table %s", e.Value, e.Field, e.Table)
}
