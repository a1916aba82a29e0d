package store

import (
	"fmt"
	"strings"

	"github.com/sheetstore/sheetstore/pkg/models"
)

// InitFromModel drops and recreates every table of the model. Destructive:
// all existing data is lost. Tables are emitted in model order, which may
// put a referrer before its foreign-key target; SQLite resolves the
// reference at first use, so dependency order is not required.
func (e *Engine) InitFromModel() error {
	for _, table := range e.Model.Tables {
		if _, err := e.ExecuteStatement("DROP TABLE IF EXISTS " + table.Name); err != nil {
			return err
		}
		if _, err := e.ExecuteStatement(tableDDL(table)); err != nil {
			return err
		}
		e.Logger.Debugf("Created table %s", table.Name)
	}
	e.Logger.Infof("Initialized database %s from model: %d tables", e.Path, len(e.Model.Tables))
	return nil
}

// tableDDL synthesizes the CREATE TABLE statement for one table:
// an autoincrementing ID, a display_name the store itself derives from the
// display parts and keeps unique, one column per declared field, and a
// creation_date stamped at insert.
func tableDDL(table *models.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table.Name)
	b.WriteString("ID INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	fmt.Fprintf(&b, "display_name TEXT UNIQUE GENERATED ALWAYS AS (%s) STORED,\n", displayNameExpr(table))
	for _, field := range table.Fields {
		if field.Automatic {
			continue
		}
		b.WriteString(fieldDDL(field))
		b.WriteString(",\n")
	}
	b.WriteString("creation_date DATE DEFAULT (datetime(current_timestamp))\n)")
	return b.String()
}

// displayNameExpr concatenates the display parts with ' - ', in field
// declaration order
func displayNameExpr(table *models.Table) string {
	var names []string
	for _, field := range table.DisplayNameFields() {
		names = append(names, field.Name)
	}
	return strings.Join(names, " || ' - ' || ")
}

func fieldDDL(field *models.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", field.Name, field.StorageType())
	if field.Mandatory {
		b.WriteString(" NOT NULL")
	}
	if field.DefaultValue != "" {
		fmt.Fprintf(&b, " DEFAULT %s", defaultLiteral(field))
	} else if field.IsForeignKey() {
		// an explicit NULL default so ON DELETE SET DEFAULT has
		// something to set; the loader rejects this for mandatory keys
		b.WriteString(" DEFAULT NULL")
	}
	if field.IsForeignKey() {
		fmt.Fprintf(&b, " REFERENCES %s(display_name) ON UPDATE CASCADE ON DELETE SET DEFAULT",
			field.ForeignKeyTable.Name)
	}
	return b.String()
}

// defaultLiteral renders a field's default as a SQL literal. Defaults come
// from the definition workbook, not from callers, but text still gets
// quoted properly.
func defaultLiteral(field *models.Field) string {
	switch field.Kind() {
	case models.KindInteger:
		return field.DefaultValue
	case models.KindBoolean:
		if b, err := models.ParseBool(field.DefaultValue); err == nil && b {
			return "1"
		}
		return "0"
	default:
		return "'" + strings.ReplaceAll(field.DefaultValue, "'", "''") + "'"
	}
}
