package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/sheetstore/sheetstore/pkg/models"
)

// Sheet names of the two relations describing the data model
const (
	TableSheet = "data_table"
	FieldSheet = "data_field"
)

// Fields without an explicit display_order sort last, in declaration order
const defaultDisplayOrder = 1000000

type tableRow struct {
	name       string
	sortRowsBy string
}

type fieldRow struct {
	tableName         string
	fieldName         string
	typeTag           string
	foreignKeyTable   string
	partOfDisplayName bool
	mandatory         bool
	editable          bool
	defaultValue      string
	displayOrder      int
}

// Load builds the data model from a definition workbook. Loading is
// all-or-nothing: any unknown kind tag, duplicate name or unresolved
// cross-reference aborts with no partial model.
//
// Cross-linking runs as a second pass once every table exists, because
// foreign keys and sort fields may reference tables declared later in
// the sheet.
func Load(path string, opts models.Options, logger *logrus.Logger) (*models.DataModel, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open data model %s: %w", path, err)
	}
	defer workbook.Close()

	tableRows, err := parseTableSheet(workbook)
	if err != nil {
		return nil, err
	}
	fieldRows, err := parseFieldSheet(workbook)
	if err != nil {
		return nil, err
	}

	model := &models.DataModel{Path: path, Options: opts}

	// First pass: tables and their declared fields, in sheet order.
	// sort_rows_by and foreign_key_table stay raw names for now.
	rawSort := make(map[*models.Table]string)
	rawForeignKey := make(map[*models.Field]string)
	declared := make(map[string]bool)

	for _, row := range tableRows {
		if declared[row.name] {
			return nil, fmt.Errorf("%w: %s declared twice in %s", models.ErrTableAmbiguous, row.name, TableSheet)
		}
		declared[row.name] = true
		table := &models.Table{Model: model, Name: row.name}
		rawSort[table] = row.sortRowsBy
		model.Tables = append(model.Tables, table)
	}

	consumed := 0
	for _, table := range model.Tables {
		seen := make(map[string]bool)
		for _, row := range fieldRows {
			if row.tableName != table.Name {
				continue
			}
			consumed++
			if isAutomaticName(row.fieldName) {
				return nil, fmt.Errorf("field %s in table %s is reserved for automatic use", row.fieldName, table.Name)
			}
			if seen[row.fieldName] {
				return nil, fmt.Errorf("%w: %s declared twice in %s", models.ErrFieldAmbiguous, row.fieldName, table.Name)
			}
			seen[row.fieldName] = true
			kind, err := models.KindFromTag(row.typeTag)
			if err != nil {
				return nil, fmt.Errorf("field %s in table %s: %w", row.fieldName, table.Name, err)
			}
			field := &models.Field{
				Table:             table,
				Name:              row.fieldName,
				BaseKind:          kind,
				PartOfDisplayName: row.partOfDisplayName,
				Mandatory:         row.mandatory,
				Editable:          row.editable,
				DefaultValue:      row.defaultValue,
				DisplayOrder:      row.displayOrder,
			}
			if row.foreignKeyTable != "" {
				rawForeignKey[field] = row.foreignKeyTable
			}
			table.Fields = append(table.Fields, field)
		}
		if len(table.Fields) == 0 {
			return nil, fmt.Errorf("table %s declares no fields", table.Name)
		}
		if len(table.DisplayNameFields()) == 0 {
			return nil, fmt.Errorf("table %s has no part_of_display_name field", table.Name)
		}
		addAutomaticFields(table)
	}

	if consumed != len(fieldRows) {
		for _, row := range fieldRows {
			if !declared[row.tableName] {
				return nil, fmt.Errorf("%w: %s referenced by field %s in %s",
					models.ErrTableNotFound, row.tableName, row.fieldName, FieldSheet)
			}
		}
	}

	// Second pass: resolve raw names to the actual objects
	for _, table := range model.Tables {
		if name := rawSort[table]; name != "" {
			field, err := table.Field(name)
			if err != nil {
				return nil, fmt.Errorf("sort_rows_by for table %s: %w", table.Name, err)
			}
			table.SortRowsBy = field
		}
		for _, field := range table.Fields {
			name, ok := rawForeignKey[field]
			if !ok {
				continue
			}
			target, err := model.Table(name)
			if err != nil {
				return nil, fmt.Errorf("foreign key %s: %w", field, err)
			}
			field.ForeignKeyTable = target
			if field.Mandatory && field.DefaultValue == "" {
				// ON DELETE SET DEFAULT would write NULL into a NOT NULL
				// column the first time the target row goes away
				return nil, fmt.Errorf("mandatory foreign key %s needs a default value or must be optional", field)
			}
		}
	}

	logger.Infof("Loaded data model from %s: %d tables, %d fields", path, len(model.Tables), len(fieldRows))
	return model, nil
}

func isAutomaticName(name string) bool {
	return name == models.FieldID || name == models.FieldDisplayName || name == models.FieldCreationDate
}

// addAutomaticFields prepends ID and display_name and appends
// creation_date. Their values are always assigned by the store.
func addAutomaticFields(table *models.Table) {
	id := &models.Field{
		Table:        table,
		Name:         models.FieldID,
		BaseKind:     models.KindInteger,
		Automatic:    true,
		DisplayOrder: -2,
	}
	displayName := &models.Field{
		Table:        table,
		Name:         models.FieldDisplayName,
		BaseKind:     models.KindText,
		Mandatory:    true,
		Automatic:    true,
		DisplayOrder: -1,
	}
	creationDate := &models.Field{
		Table:        table,
		Name:         models.FieldCreationDate,
		BaseKind:     models.KindDate,
		Mandatory:    true,
		Automatic:    true,
		DisplayOrder: defaultDisplayOrder,
	}
	table.Fields = append([]*models.Field{id, displayName}, table.Fields...)
	table.Fields = append(table.Fields, creationDate)
}

func parseTableSheet(workbook *excelize.File) ([]tableRow, error) {
	rows, err := sheetRows(workbook, TableSheet)
	if err != nil {
		return nil, err
	}
	var parsed []tableRow
	for _, row := range rows {
		name, err := row.text("table_name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("sheet %s row %d has a blank table_name", TableSheet, row.number)
		}
		sortBy, err := row.text("sort_rows_by")
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, tableRow{name: name, sortRowsBy: sortBy})
	}
	return parsed, nil
}

func parseFieldSheet(workbook *excelize.File) ([]fieldRow, error) {
	rows, err := sheetRows(workbook, FieldSheet)
	if err != nil {
		return nil, err
	}
	var parsed []fieldRow
	for _, row := range rows {
		var fr fieldRow
		if fr.tableName, err = row.text("table_name"); err != nil {
			return nil, err
		}
		if fr.tableName == "" {
			return nil, fmt.Errorf("sheet %s row %d has a blank table_name", FieldSheet, row.number)
		}
		if fr.fieldName, err = row.text("field_name"); err != nil {
			return nil, err
		}
		if fr.fieldName == "" {
			return nil, fmt.Errorf("sheet %s row %d has a blank field_name", FieldSheet, row.number)
		}
		if fr.typeTag, err = row.text("type"); err != nil {
			return nil, err
		}
		if fr.foreignKeyTable, err = row.text("foreign_key_table"); err != nil {
			return nil, err
		}
		if fr.partOfDisplayName, err = row.boolean("part_of_display_name", false); err != nil {
			return nil, err
		}
		if fr.mandatory, err = row.boolean("mandatory", false); err != nil {
			return nil, err
		}
		if fr.editable, err = row.boolean("editable", true); err != nil {
			return nil, err
		}
		if fr.defaultValue, err = row.text("default_value"); err != nil {
			return nil, err
		}
		if fr.displayOrder, err = row.integer("display_order", defaultDisplayOrder); err != nil {
			return nil, err
		}
		parsed = append(parsed, fr)
	}
	return parsed, nil
}

// sheetRow gives named access to the cells of one data row. Missing and
// blank cells are absent values, never data.
type sheetRow struct {
	sheet   string
	number  int
	columns map[string]int
	cells   []string
}

func (r sheetRow) text(column string) (string, error) {
	idx, ok := r.columns[column]
	if !ok {
		return "", fmt.Errorf("sheet %s has no column %s", r.sheet, column)
	}
	if idx >= len(r.cells) {
		return "", nil
	}
	return strings.TrimSpace(r.cells[idx]), nil
}

func (r sheetRow) boolean(column string, absent bool) (bool, error) {
	cell, err := r.text(column)
	if err != nil {
		return false, err
	}
	if cell == "" {
		return absent, nil
	}
	value, err := models.ParseBool(cell)
	if err != nil {
		return false, fmt.Errorf("sheet %s row %d, column %s: %w", r.sheet, r.number, column, err)
	}
	return value, nil
}

func (r sheetRow) integer(column string, absent int) (int, error) {
	cell, err := r.text(column)
	if err != nil {
		return 0, err
	}
	if cell == "" {
		return absent, nil
	}
	value, err := strconv.Atoi(cell)
	if err != nil {
		return 0, fmt.Errorf("sheet %s row %d, column %s: not an integer: %q", r.sheet, r.number, column, cell)
	}
	return value, nil
}

func (r sheetRow) empty() bool {
	for _, cell := range r.cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sheetRows reads a sheet into named rows, dropping fully empty ones
func sheetRows(workbook *excelize.File, sheet string) ([]sheetRow, error) {
	raw, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %s: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	columns := make(map[string]int, len(raw[0]))
	for i, header := range raw[0] {
		columns[strings.TrimSpace(header)] = i
	}
	var rows []sheetRow
	for i, cells := range raw[1:] {
		row := sheetRow{sheet: sheet, number: i + 2, columns: columns, cells: cells}
		if row.empty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
