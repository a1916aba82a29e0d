package models

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Record is one row of a table, persisted or not. An ID of 0 means the
// record has not been written to the store yet (assigned IDs start at 1).
type Record struct {
	Table       *Table
	ID          int64
	DisplayName string
	values      map[*Field]interface{}
}

// NewRecord builds a record from a field-to-value mapping. Fields absent
// from the mapping fall back to their declared default, then to nil; absent
// ID and creation_date mean "not yet assigned". Every non-automatic value
// is validated against its field's kind, and the first violation aborts
// construction. The display name is computed as part of construction.
func NewRecord(table *Table, values map[*Field]interface{}) (*Record, error) {
	r := &Record{
		Table:  table,
		values: make(map[*Field]interface{}, len(table.Fields)),
	}
	for _, field := range table.Fields {
		value, given := values[field]
		if !given && !field.Automatic && field.DefaultValue != "" {
			coerced, err := CoerceString(field, field.DefaultValue)
			if err != nil {
				return nil, fmt.Errorf("bad default for field %s: %w", field, err)
			}
			value = coerced
		}
		r.values[field] = value
	}

	for _, field := range table.Fields {
		if field.Automatic {
			continue
		}
		if !field.Validate(r.values[field]) {
			return nil, &ValidationError{Table: table.Name, Field: field.Name, Value: r.values[field]}
		}
	}

	if idField, err := table.Field(FieldID); err == nil {
		switch id := r.values[idField].(type) {
		case int64:
			r.ID = id
		case int:
			r.ID = int64(id)
		}
	}
	r.recomputeDisplayName()
	return r, nil
}

// Value returns the current value of a field
func (r *Record) Value(field *Field) interface{} {
	return r.values[field]
}

// ValueByName returns the current value of the named field
func (r *Record) ValueByName(name string) (interface{}, error) {
	field, err := r.Table.Field(name)
	if err != nil {
		return nil, err
	}
	return r.values[field], nil
}

// SetValue mutates one field of the record, re-validating the value and
// recomputing the display name when a display part changes. Automatic
// fields are owned by the storage layer and cannot be set.
func (r *Record) SetValue(field *Field, value interface{}) error {
	if field.Automatic {
		return fmt.Errorf("field %s is automatic and cannot be set", field)
	}
	if !field.Validate(value) {
		return &ValidationError{Table: r.Table.Name, Field: field.Name, Value: value}
	}
	r.values[field] = value
	if field.PartOfDisplayName {
		r.recomputeDisplayName()
	}
	return nil
}

// CreationDate returns the store-assigned creation timestamp, "" if the
// record has not been persisted
func (r *Record) CreationDate() string {
	if v, err := r.ValueByName(FieldCreationDate); err == nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Persisted reports whether the record has a store-assigned ID
func (r *Record) Persisted() bool {
	return r.ID > 0
}

func (r *Record) recomputeDisplayName() {
	var parts []string
	for _, field := range r.Table.DisplayNameFields() {
		parts = append(parts, FormatValue(r.values[field]))
	}
	r.DisplayName = strings.Join(parts, DisplayNameSeparator)
	if dnField, err := r.Table.Field(FieldDisplayName); err == nil {
		r.values[dnField] = r.DisplayName
	}
}

// Equal compares records by table and full value set
func (r *Record) Equal(other *Record) bool {
	if other == nil || !r.Table.Equal(other.Table) {
		return false
	}
	for _, field := range r.Table.Fields {
		otherField, err := other.Table.Field(field.Name)
		if err != nil {
			return false
		}
		if r.values[field] != other.values[otherField] {
			return false
		}
	}
	return true
}

// Hash combines type, ID and display name. Weak on purpose: records with
// the same ID and display name collide, which is acceptable while the
// store keeps display names unique per table.
func (r *Record) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte("record"))
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(r.ID))
	h.Write(id[:])
	h.Write([]byte(r.DisplayName))
	return h.Sum64()
}

func (r *Record) String() string {
	return fmt.Sprintf("(%s) %s", r.Table, r.DisplayName)
}

// CoerceString converts a raw cell string to the typed value of a field.
// Empty cells mean absent, not an empty value.
func CoerceString(field *Field, cell string) (interface{}, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	switch field.Kind() {
	case KindInteger:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as integer for field %s", cell, field)
		}
		return n, nil
	case KindBoolean:
		b, err := ParseBool(cell)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as boolean for field %s", cell, field)
		}
		return b, nil
	default:
		return cell, nil
	}
}

// ParseBool accepts the spellings spreadsheet applications produce
func ParseBool(cell string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", cell)
}

// FormatValue renders a typed value for display names and export cells
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
