package store

import (
	"fmt"
	"strings"

	"github.com/sheetstore/sheetstore/pkg/models"
)

// GetRecords returns all rows of a table. Order: sortBy if given, else the
// table's sort_rows_by field, else unspecified. where is a raw SQLite
// predicate, an escape hatch, not a query language; values inside it are
// the caller's responsibility.
func (e *Engine) GetRecords(table *models.Table, sortBy *models.Field, where string) ([]*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columnList(table), ", "), table.Name)
	if where != "" {
		query += " WHERE " + where
	}
	if sortBy == nil {
		sortBy = table.SortRowsBy
	}
	if sortBy != nil {
		query += " ORDER BY " + sortBy.Name
	}

	rows, err := e.ExecuteQuery(query)
	if err != nil {
		return nil, err
	}
	return e.marshalRows(table, rows)
}

// GetRecord returns the single record with the given display name. Zero
// matches is an error; more than one cannot happen, the store keeps
// display names unique per table.
func (e *Engine) GetRecord(table *models.Table, displayName string) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE display_name = ?",
		strings.Join(columnList(table), ", "), table.Name)
	rows, err := e.ExecuteQuery(query, displayName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Table: table.Name, DisplayName: displayName}
	}
	records, err := e.marshalRows(table, rows[:1])
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// CreateOrUpdateRecord upserts keyed on display name: insert, or overwrite
// every field of the colliding row
func (e *Engine) CreateOrUpdateRecord(record *models.Record) error {
	names, args := insertColumns(record)
	assignments := make([]string, len(names))
	for i, name := range names {
		assignments[i] = fmt.Sprintf("%s=excluded.%s", name, name)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(display_name) DO UPDATE SET %s",
		record.Table.Name, strings.Join(names, ", "), placeholders(len(names)), strings.Join(assignments, ", "))
	_, err := e.ExecuteStatement(query, args...)
	return err
}

// CreateRecordOrFail inserts; a colliding display name is a ConflictError
func (e *Engine) CreateRecordOrFail(record *models.Record) error {
	names, args := insertColumns(record)
	query := fmt.Sprintf("INSERT OR FAIL INTO %s (%s) VALUES (%s)",
		record.Table.Name, strings.Join(names, ", "), placeholders(len(names)))
	_, err := e.ExecuteStatement(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Table: record.Table.Name, DisplayName: record.DisplayName, Err: err}
		}
		return err
	}
	return nil
}

// CreateRecordOrIgnore inserts; colliding rows are skipped silently
func (e *Engine) CreateRecordOrIgnore(record *models.Record) error {
	names, args := insertColumns(record)
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		record.Table.Name, strings.Join(names, ", "), placeholders(len(names)))
	_, err := e.ExecuteStatement(query, args...)
	return err
}

// UpdateRecordOrFail updates by ID; an unknown ID is a NotFoundError
func (e *Engine) UpdateRecordOrFail(record *models.Record) error {
	names, args := insertColumns(record)
	assignments := make([]string, len(names))
	for i, name := range names {
		assignments[i] = name + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE ID = ?",
		record.Table.Name, strings.Join(assignments, ", "))
	affected, err := e.ExecuteStatement(query, append(args, record.ID)...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return &NotFoundError{Table: record.Table.Name, ID: record.ID}
	}
	return nil
}

// DeleteRecordOrFail deletes by ID after confirming the row exists
func (e *Engine) DeleteRecordOrFail(record *models.Record) error {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE ID = ?)", record.Table.Name)
	rows, err := e.ExecuteQuery(query, record.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || !truthy(rows[0][0]) {
		return &NotFoundError{Table: record.Table.Name, ID: record.ID}
	}
	return e.DeleteRecordOrIgnore(record)
}

// DeleteRecordOrIgnore deletes by ID; zero rows affected is success
func (e *Engine) DeleteRecordOrIgnore(record *models.Record) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE ID = ?", record.Table.Name)
	_, err := e.ExecuteStatement(query, record.ID)
	return err
}

// ClearTable deletes every row, one at a time, so each failure surfaces
// individually instead of vanishing into one bulk statement
func (e *Engine) ClearTable(table *models.Table) error {
	records, err := e.GetRecords(table, nil, "")
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := e.DeleteRecordOrFail(record); err != nil {
			return err
		}
	}
	e.Logger.Debugf("Cleared table %s (%d records)", table.Name, len(records))
	return nil
}

// columnList gives the SELECT list in field declaration order, which the
// row marshalling relies on
func columnList(table *models.Table) []string {
	names := make([]string, len(table.Fields))
	for i, field := range table.Fields {
		names[i] = field.Name
	}
	return names
}

// insertColumns returns the non-automatic column names and their encoded
// values, in field declaration order
func insertColumns(record *models.Record) ([]string, []interface{}) {
	var names []string
	var args []interface{}
	for _, field := range record.Table.Fields {
		if field.Automatic {
			continue
		}
		names = append(names, field.Name)
		args = append(args, encodeValue(field, record.Value(field)))
	}
	return names, args
}

func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

func truthy(raw interface{}) bool {
	switch v := raw.(type) {
	case int64:
		return v != 0
	case bool:
		return v
	}
	return false
}

// marshalRows zips raw rows with the table's fields, in the same order as
// the column list, and converts each cell back to its typed value before
// building records
func (e *Engine) marshalRows(table *models.Table, rows [][]interface{}) ([]*models.Record, error) {
	records := make([]*models.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(table.Fields) {
			return nil, fmt.Errorf("row of table %s has %d cells, model declares %d fields",
				table.Name, len(row), len(table.Fields))
		}
		values := make(map[*models.Field]interface{}, len(row))
		for i, field := range table.Fields {
			values[field] = decodeValue(field, row[i])
		}
		record, err := models.NewRecord(table, values)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
