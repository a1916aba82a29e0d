package models

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// FieldKind identifies the value type of a field
type FieldKind int

const (
	KindText FieldKind = iota
	KindInteger
	KindBoolean
	KindDate
	KindDuration
	KindFilepath
	KindForeignKey
)

// DateFormat is the canonical timestamp layout for Date fields (YYYY-MM-DD HH:MM:SS)
const DateFormat = "2006-01-02 15:04:05"

// durationPattern matches H+:MM:SS, hours unbounded, minutes and seconds exactly two digits
var durationPattern = regexp.MustCompile(`^\d+:\d{2}:\d{2}$`)

// kindSpec holds the per-kind behavior: the SQLite column type and the value validator.
// Foreign-key fields validate and store through their base kind.
type kindSpec struct {
	name        string
	storageType string
	validate    func(f *Field, value interface{}) bool
}

var kindSpecs = map[FieldKind]kindSpec{
	KindText: {
		name:        "text",
		storageType: "TEXT",
		validate: func(f *Field, value interface{}) bool {
			if !f.Mandatory {
				return true
			}
			s, ok := value.(string)
			return ok && s != ""
		},
	},
	KindInteger: {
		name:        "integer",
		storageType: "INTEGER",
		validate: func(f *Field, value interface{}) bool {
			if value == nil {
				return !f.Mandatory
			}
			switch value.(type) {
			case int, int64:
				return true
			}
			return false
		},
	},
	KindBoolean: {
		name:        "boolean",
		storageType: "BOOLEAN",
		validate: func(f *Field, value interface{}) bool {
			_, ok := value.(bool)
			return ok
		},
	},
	KindDate: {
		name:        "date",
		storageType: "TEXT",
		validate: func(f *Field, value interface{}) bool {
			if value == nil {
				return !f.Mandatory
			}
			s, ok := value.(string)
			if !ok {
				return false
			}
			if s == "" {
				return !f.Mandatory
			}
			_, err := time.Parse(DateFormat, s)
			return err == nil
		},
	},
	KindDuration: {
		name:        "duration",
		storageType: "TEXT",
		validate: func(f *Field, value interface{}) bool {
			if value == nil {
				return !f.Mandatory
			}
			s, ok := value.(string)
			if !ok {
				return false
			}
			if s == "" {
				return !f.Mandatory
			}
			return durationPattern.MatchString(s)
		},
	},
	KindFilepath: {
		name:        "filepath",
		storageType: "TEXT",
		validate: func(f *Field, value interface{}) bool {
			if value == nil {
				return !f.Mandatory
			}
			s, ok := value.(string)
			if !ok {
				return false
			}
			if s == "" {
				return !f.Mandatory
			}
			if f.checkFilepathExists() {
				_, err := os.Stat(s)
				return err == nil
			}
			return true
		},
	},
	KindForeignKey: {
		name:        "foreign key",
		storageType: "TEXT",
		validate: func(f *Field, value interface{}) bool {
			// a foreign key holds the display name of the target record
			if value == nil {
				return !f.Mandatory
			}
			s, ok := value.(string)
			if !ok {
				return false
			}
			return s != "" || !f.Mandatory
		},
	},
}

// kindTags maps the type tags used in the definition workbook to kinds.
// LENGTH is the historical tag for durations; DURATION is accepted as well.
var kindTags = map[string]FieldKind{
	"TEXT":     KindText,
	"INTEGER":  KindInteger,
	"BOOLEAN":  KindBoolean,
	"DATE":     KindDate,
	"LENGTH":   KindDuration,
	"DURATION": KindDuration,
	"FILEPATH": KindFilepath,
}

// KindFromTag resolves a definition type tag to a field kind.
// Unknown tags are schema errors and abort loading.
func KindFromTag(tag string) (FieldKind, error) {
	kind, ok := kindTags[strings.ToUpper(strings.TrimSpace(tag))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown field type %q", ErrUnknownKind, tag)
	}
	return kind, nil
}

// String returns the kind name for logs and error messages
func (k FieldKind) String() string {
	if spec, ok := kindSpecs[k]; ok {
		return spec.name
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// StorageType returns the SQLite column type for the kind
func (k FieldKind) StorageType() string {
	return kindSpecs[k].storageType
}

// ParseDuration converts an H+:MM:SS string to a time.Duration
func ParseDuration(value string) (time.Duration, error) {
	if !durationPattern.MatchString(value) {
		return 0, fmt.Errorf("invalid duration %q, expected H:MM:SS", value)
	}
	var hours, minutes, seconds int
	fmt.Sscanf(value, "%d:%d:%d", &hours, &minutes, &seconds)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, nil
}
