package bulk

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/sheetstore/sheetstore/internal/schema"
	"github.com/sheetstore/sheetstore/internal/store"
	"github.com/sheetstore/sheetstore/pkg/models"
)

// LoadMode selects the conflict semantics of a bulk load
type LoadMode string

const (
	// ModeAddOrFail fails on the first record whose display name exists
	ModeAddOrFail LoadMode = "add or fail"
	// ModeAddOrIgnore skips records whose display name exists
	ModeAddOrIgnore LoadMode = "add or ignore"
	// ModeUpdateOrAdd upserts keyed on display name
	ModeUpdateOrAdd LoadMode = "update or add"
	// ModeDeleteAndAdd clears each table before loading its sheet
	ModeDeleteAndAdd LoadMode = "delete and add"
)

// ParseLoadMode validates a mode string from the CLI
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAddOrFail:
		return ModeAddOrFail, nil
	case ModeAddOrIgnore:
		return ModeAddOrIgnore, nil
	case ModeUpdateOrAdd:
		return ModeUpdateOrAdd, nil
	case ModeDeleteAndAdd:
		return ModeDeleteAndAdd, nil
	}
	return "", fmt.Errorf("mode must be one of: %q, %q, %q, %q",
		ModeAddOrFail, ModeAddOrIgnore, ModeUpdateOrAdd, ModeDeleteAndAdd)
}

// Loader populates tables from workbook sheets through the engine's CRUD
// primitives, one sheet per table, columns matched to non-automatic fields
// by header name
type Loader struct {
	Engine       *store.Engine
	Logger       *logrus.Logger
	FailedTables map[string]bool
}

// NewLoader creates a bulk loader
func NewLoader(engine *store.Engine, logger *logrus.Logger) *Loader {
	return &Loader{
		Engine:       engine,
		Logger:       logger,
		FailedTables: make(map[string]bool),
	}
}

// LoadWorkbook loads every data sheet of the workbook. Sheets are loaded
// in foreign-key dependency order so referenced rows exist before their
// referrers. A failing table is logged and skipped; the remaining tables
// still load, and the aggregate failure is reported at the end.
func (l *Loader) LoadWorkbook(path string, mode LoadMode) error {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("cannot open workbook %s: %w", path, err)
	}
	defer workbook.Close()

	model := l.Engine.Model
	wanted := make(map[string]bool)
	for _, sheet := range workbook.GetSheetList() {
		if sheet == schema.TableSheet || sheet == schema.FieldSheet {
			continue
		}
		if _, err := model.Table(sheet); err != nil {
			return fmt.Errorf("workbook sheet %s: %w", sheet, err)
		}
		wanted[sheet] = true
	}

	loaded := 0
	for _, table := range schema.TableOrder(model, l.Logger) {
		if !wanted[table.Name] {
			continue
		}
		if err := l.loadSheet(workbook, table, mode); err != nil {
			l.Logger.Errorf("Error loading table %s: %v", table.Name, err)
			l.FailedTables[table.Name] = true
			continue
		}
		loaded++
	}

	if len(l.FailedTables) > 0 {
		names := make([]string, 0, len(l.FailedTables))
		for name := range l.FailedTables {
			names = append(names, name)
		}
		return fmt.Errorf("failed to load %d of %d tables: %s",
			len(l.FailedTables), loaded+len(l.FailedTables), strings.Join(names, ", "))
	}
	l.Logger.Infof("Loaded %d tables from %s", loaded, path)
	return nil
}

func (l *Loader) loadSheet(workbook *excelize.File, table *models.Table, mode LoadMode) error {
	rows, err := workbook.GetRows(table.Name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	// Columns map to non-automatic fields by header name. Automatic
	// columns are skipped: their values belong to the store.
	fields := make([]*models.Field, len(rows[0]))
	for i, header := range rows[0] {
		header = strings.TrimSpace(header)
		field, err := table.Field(header)
		if err != nil {
			return err
		}
		if field.Automatic {
			l.Logger.Warningf("Skipping automatic column %s in sheet %s", header, table.Name)
			continue
		}
		fields[i] = field
	}

	if mode == ModeDeleteAndAdd {
		if err := l.Engine.ClearTable(table); err != nil {
			return err
		}
	}

	count := 0
	for _, cells := range rows[1:] {
		if emptyRow(cells) {
			continue
		}
		values := make(map[*models.Field]interface{})
		for i, field := range fields {
			if field == nil {
				continue
			}
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			value, err := models.CoerceString(field, cell)
			if err != nil {
				return err
			}
			values[field] = value
		}
		record, err := models.NewRecord(table, values)
		if err != nil {
			return err
		}
		if err := l.storeRecord(record, mode); err != nil {
			return err
		}
		count++
	}
	l.Logger.Infof("Loaded %d records into table %s (%s)", count, table.Name, mode)
	return nil
}

func (l *Loader) storeRecord(record *models.Record, mode LoadMode) error {
	switch mode {
	case ModeAddOrFail, ModeDeleteAndAdd:
		return l.Engine.CreateRecordOrFail(record)
	case ModeUpdateOrAdd:
		return l.Engine.CreateOrUpdateRecord(record)
	case ModeAddOrIgnore:
		return l.Engine.CreateRecordOrIgnore(record)
	}
	return fmt.Errorf("unknown load mode %q", mode)
}

// ExportWorkbook writes one sheet per table, automatic columns dropped.
// An existing file at path is replaced. Exports every table of the model
// when tableNames is empty.
func ExportWorkbook(engine *store.Engine, path string, tableNames []string) error {
	model := engine.Model
	var tables []*models.Table
	if len(tableNames) > 0 {
		for _, name := range tableNames {
			table, err := model.Table(name)
			if err != nil {
				return err
			}
			tables = append(tables, table)
		}
	} else {
		tables = model.Tables
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	for i, table := range tables {
		if i == 0 {
			// reuse the default sheet excelize creates
			if err := workbook.SetSheetName(workbook.GetSheetName(0), table.Name); err != nil {
				return err
			}
		} else if _, err := workbook.NewSheet(table.Name); err != nil {
			return err
		}
		if err := exportSheet(workbook, engine, table); err != nil {
			return err
		}
	}

	if err := workbook.SaveAs(path); err != nil {
		return fmt.Errorf("cannot write workbook %s: %w", path, err)
	}
	engine.Logger.Infof("Exported %d tables to %s", len(tables), path)
	return nil
}

func exportSheet(workbook *excelize.File, engine *store.Engine, table *models.Table) error {
	header := exportHeader(table)
	row := make([]interface{}, len(header))
	for i, name := range header {
		row[i] = name
	}
	if err := workbook.SetSheetRow(table.Name, "A1", &row); err != nil {
		return err
	}

	records, err := engine.GetRecords(table, nil, "")
	if err != nil {
		return err
	}
	for i, record := range records {
		cells := make([]interface{}, 0, len(header))
		for _, field := range table.Fields {
			if field.Automatic {
				continue
			}
			cells = append(cells, models.FormatValue(record.Value(field)))
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := workbook.SetSheetRow(table.Name, anchor, &cells); err != nil {
			return err
		}
	}
	return nil
}

// exportHeader lists the exported column names: every non-automatic field,
// in declaration order
func exportHeader(table *models.Table) []string {
	var names []string
	for _, field := range table.Fields {
		if !field.Automatic {
			names = append(names, field.Name)
		}
	}
	return names
}

func emptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
