package bulk

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/sheetstore/sheetstore/internal/store"
	"github.com/sheetstore/sheetstore/pkg/models"
)

func libraryModel() *models.DataModel {
	model := &models.DataModel{Path: "datamodel.xlsx"}

	genre := &models.Table{Model: model, Name: "genre"}
	genre.Fields = []*models.Field{
		{Table: genre, Name: models.FieldID, BaseKind: models.KindInteger, Automatic: true},
		{Table: genre, Name: models.FieldDisplayName, BaseKind: models.KindText, Mandatory: true, Automatic: true},
		{Table: genre, Name: "name", BaseKind: models.KindText, PartOfDisplayName: true, Mandatory: true, Editable: true, DisplayOrder: 1},
		{Table: genre, Name: models.FieldCreationDate, BaseKind: models.KindDate, Mandatory: true, Automatic: true},
	}

	book := &models.Table{Model: model, Name: "book"}
	book.Fields = []*models.Field{
		{Table: book, Name: models.FieldID, BaseKind: models.KindInteger, Automatic: true},
		{Table: book, Name: models.FieldDisplayName, BaseKind: models.KindText, Mandatory: true, Automatic: true},
		{Table: book, Name: "title", BaseKind: models.KindText, PartOfDisplayName: true, Mandatory: true, Editable: true, DisplayOrder: 1},
		{Table: book, Name: "author", BaseKind: models.KindText, PartOfDisplayName: true, Editable: true, DisplayOrder: 2},
		{Table: book, Name: "genre", BaseKind: models.KindText, ForeignKeyTable: genre, Mandatory: true, Editable: true, DefaultValue: "Unknown", DisplayOrder: 3},
		{Table: book, Name: "available", BaseKind: models.KindBoolean, Editable: true, DefaultValue: "true", DisplayOrder: 4},
		{Table: book, Name: models.FieldCreationDate, BaseKind: models.KindDate, Mandatory: true, Automatic: true},
	}

	// book is declared before its foreign-key target on purpose, so that
	// loading in declaration order would insert referrers first
	model.Tables = []*models.Table{book, genre}
	return model
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mockEngine(t *testing.T) (*store.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Cannot create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &store.Engine{Path: "test.db", Model: libraryModel(), DB: db, Logger: quietLogger()}, mock
}

type sheetData struct {
	name string
	rows [][]string
}

// writeWorkbook writes a data workbook with the given sheets, in order,
// into a temporary directory and returns its path
func writeWorkbook(t *testing.T, sheets []sheetData) string {
	t.Helper()
	workbook := excelize.NewFile()
	defer workbook.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := workbook.SetSheetName(workbook.GetSheetName(0), sheet.name); err != nil {
				t.Fatalf("Cannot rename default sheet: %v", err)
			}
		} else if _, err := workbook.NewSheet(sheet.name); err != nil {
			t.Fatalf("Cannot create sheet %s: %v", sheet.name, err)
		}
		for j, row := range sheet.rows {
			cells := make([]interface{}, len(row))
			for k, cell := range row {
				cells[k] = cell
			}
			if err := workbook.SetSheetRow(sheet.name, fmt.Sprintf("A%d", j+1), &cells); err != nil {
				t.Fatalf("Cannot write row %d of sheet %s: %v", j+1, sheet.name, err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := workbook.SaveAs(path); err != nil {
		t.Fatalf("Cannot save workbook: %v", err)
	}
	return path
}

func TestParseLoadMode(t *testing.T) {
	cases := []struct {
		input    string
		expected LoadMode
	}{
		{"add or fail", ModeAddOrFail},
		{"add or ignore", ModeAddOrIgnore},
		{"update or add", ModeUpdateOrAdd},
		{"delete and add", ModeDeleteAndAdd},
		{"  Update Or Add  ", ModeUpdateOrAdd},
	}
	for _, c := range cases {
		mode, err := ParseLoadMode(c.input)
		if err != nil {
			t.Errorf("Expected %q to parse, got error: %v", c.input, err)
		}
		if mode != c.expected {
			t.Errorf("Expected %q to parse as %q, got %q", c.input, c.expected, mode)
		}
	}

	if _, err := ParseLoadMode("replace"); err == nil {
		t.Error("Expected an unknown mode to be rejected")
	}
}

func TestLoadWorkbookDependencyOrder(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	// the book sheet comes first in the workbook, but genre rows must be
	// inserted first so the foreign key resolves
	path := writeWorkbook(t, []sheetData{
		{"book", [][]string{
			{"title", "author", "genre", "available"},
			{"Dune", "Frank Herbert", "SciFi", "TRUE"},
		}},
		{"genre", [][]string{
			{"name"},
			{"SciFi"},
		}},
	})

	mock.ExpectExec("INSERT OR FAIL INTO genre (name) VALUES (?)").
		WithArgs("SciFi").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT OR FAIL INTO book (title, author, genre, available) VALUES (?, ?, ?, ?)").
		WithArgs("Dune", "Frank Herbert", "SciFi", int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := loader.LoadWorkbook(path, ModeAddOrFail); err != nil {
		t.Fatalf("Expected the workbook to load, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expected inserts in dependency order: %v", err)
	}
	if len(loader.FailedTables) != 0 {
		t.Errorf("Expected no failed tables, got %v", loader.FailedTables)
	}
}

func TestLoadWorkbookIgnoresDefinitionSheets(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"data_table", [][]string{{"table_name"}, {"genre"}}},
		{"data_field", [][]string{{"table_name", "field_name"}}},
		{"genre", [][]string{{"name"}, {"SciFi"}}},
	})

	mock.ExpectExec("INSERT OR FAIL INTO genre (name) VALUES (?)").
		WithArgs("SciFi").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := loader.LoadWorkbook(path, ModeAddOrFail); err != nil {
		t.Fatalf("Expected the definition sheets to be skipped, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expectations not met: %v", err)
	}
}

func TestLoadWorkbookUnknownSheet(t *testing.T) {
	engine, _ := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"movie", [][]string{{"title"}, {"Alien"}}},
	})

	err := loader.LoadWorkbook(path, ModeAddOrFail)
	if !errors.Is(err, models.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound for an unknown sheet, got %v", err)
	}
}

func TestLoadWorkbookSkipsAutomaticColumns(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"genre", [][]string{
			{"ID", "name"},
			{"7", "SciFi"},
		}},
	})

	mock.ExpectExec("INSERT OR FAIL INTO genre (name) VALUES (?)").
		WithArgs("SciFi").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := loader.LoadWorkbook(path, ModeAddOrFail); err != nil {
		t.Fatalf("Expected the ID column to be skipped, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expectations not met: %v", err)
	}
}

func TestLoadWorkbookDeleteAndAdd(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"genre", [][]string{{"name"}, {"SciFi"}}},
	})

	// the table is cleared row by row before loading
	mock.ExpectQuery("SELECT ID, display_name, name, creation_date FROM genre").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "display_name", "name", "creation_date"}).
			AddRow(int64(1), "Western", "Western", "2024-01-02 03:04:05"))
	mock.ExpectQuery("SELECT EXISTS(SELECT 1 FROM genre WHERE ID = ?)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(int64(1)))
	mock.ExpectExec("DELETE FROM genre WHERE ID = ?").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT OR FAIL INTO genre (name) VALUES (?)").
		WithArgs("SciFi").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := loader.LoadWorkbook(path, ModeDeleteAndAdd); err != nil {
		t.Fatalf("Expected the table to be cleared and reloaded, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expectations not met: %v", err)
	}
}

func TestLoadWorkbookUpdateOrAdd(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"genre", [][]string{{"name"}, {"SciFi"}}},
	})

	mock.ExpectExec("INSERT INTO genre (name) VALUES (?) ON CONFLICT(display_name) DO UPDATE SET name=excluded.name").
		WithArgs("SciFi").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := loader.LoadWorkbook(path, ModeUpdateOrAdd); err != nil {
		t.Fatalf("Expected the record to be upserted, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expectations not met: %v", err)
	}
}

func TestLoadWorkbookTracksFailedTables(t *testing.T) {
	engine, mock := mockEngine(t)
	loader := NewLoader(engine, quietLogger())

	path := writeWorkbook(t, []sheetData{
		{"genre", [][]string{{"name"}, {"SciFi"}}},
	})

	mock.ExpectExec("INSERT OR FAIL INTO genre (name) VALUES (?)").
		WithArgs("SciFi").
		WillReturnError(errors.New("disk I/O error"))

	err := loader.LoadWorkbook(path, ModeAddOrFail)
	if err == nil {
		t.Fatal("Expected an aggregate failure")
	}
	if !loader.FailedTables["genre"] {
		t.Errorf("Expected genre to be tracked as failed, got %v", loader.FailedTables)
	}
}

func TestExportHeader(t *testing.T) {
	model := libraryModel()
	book, _ := model.Table("book")

	header := exportHeader(book)
	expected := []string{"title", "author", "genre", "available"}
	if len(header) != len(expected) {
		t.Fatalf("Expected %d columns, got %d: %v", len(expected), len(header), header)
	}
	for i, name := range expected {
		if header[i] != name {
			t.Errorf("Expected column %d to be %s, got %s", i, name, header[i])
		}
	}
}

func TestExportWorkbook(t *testing.T) {
	engine, mock := mockEngine(t)

	mock.ExpectQuery("SELECT ID, display_name, title, author, genre, available, creation_date FROM book").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "display_name", "title", "author", "genre", "available", "creation_date"}).
			AddRow(int64(3), "Dune - Frank Herbert", "Dune", "Frank Herbert", "SciFi", int64(1), "2024-01-02 03:04:05"))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := ExportWorkbook(engine, path, []string{"book"}); err != nil {
		t.Fatalf("Expected the export to succeed, got error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expectations not met: %v", err)
	}

	workbook, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Cannot reopen export: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows("book")
	if err != nil {
		t.Fatalf("Cannot read exported sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected a header and one data row, got %d rows", len(rows))
	}
	expectedHeader := []string{"title", "author", "genre", "available"}
	for i, name := range expectedHeader {
		if rows[0][i] != name {
			t.Errorf("Expected header column %d to be %s, got %s", i, name, rows[0][i])
		}
	}
	expectedCells := []string{"Dune", "Frank Herbert", "SciFi", "TRUE"}
	for i, cell := range expectedCells {
		if rows[1][i] != cell {
			t.Errorf("Expected cell %d to be %s, got %s", i, cell, rows[1][i])
		}
	}
}
