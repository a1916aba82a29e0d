package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/sheetstore/sheetstore/pkg/models"
)

// Engine performs all storage operations for one database file, using the
// data model for validation and SQL synthesis. It holds a single connection
// for its whole lifetime and is not safe for concurrent use.
//
// Construct one engine at startup and pass it by reference; there is no
// package-level instance.
type Engine struct {
	Path   string
	Model  *models.DataModel
	DB     *sql.DB
	Logger *logrus.Logger
}

// Open connects to the SQLite database at path. Foreign-key enforcement is
// switched on for the connection: the cascade rules in the synthesized
// schema depend on it.
func Open(path string, model *models.DataModel, logger *logrus.Logger) (*Engine, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		logger.Errorf("Error opening database %s: %v", path, err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Errorf("Error pinging database %s: %v", path, err)
		db.Close()
		return nil, err
	}

	logger.Infof("Connected to database: %s", path)
	return &Engine{
		Path:   path,
		Model:  model,
		DB:     db,
		Logger: logger,
	}, nil
}

// Close releases the connection
func (e *Engine) Close() error {
	if e.DB == nil {
		return nil
	}
	err := e.DB.Close()
	if err != nil {
		e.Logger.Errorf("Error closing database connection: %v", err)
	} else {
		e.Logger.Info("Database connection closed")
	}
	e.DB = nil
	return err
}

// Swap closes the current database and opens another one with its model.
// This is a full reload: records read from the previous database are stale
// and must not be used against the new one.
func (e *Engine) Swap(path string, model *models.DataModel) error {
	if err := e.Close(); err != nil {
		return err
	}
	fresh, err := Open(path, model, e.Logger)
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// ExecuteQuery runs a query and returns the raw rows, cell values in
// column order
func (e *Engine) ExecuteQuery(query string, params ...interface{}) ([][]interface{}, error) {
	rows, err := e.DB.Query(query, params...)
	if err != nil {
		e.Logger.Errorf("Query failed: %s: %v", query, err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		e.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			e.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		e.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}
	return results, nil
}

// ExecuteStatement runs a statement and returns the number of affected
// rows. The failing statement is logged before the error is returned.
func (e *Engine) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	result, err := e.DB.Exec(query, params...)
	if err != nil {
		e.Logger.Errorf("Statement failed: %s: %v", query, err)
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		e.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}
	return affected, nil
}

// encodeValue converts an in-memory value to its storage representation.
// SQLite has no native boolean column, so booleans go in as 0/1.
func encodeValue(field *models.Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if field.Kind() == models.KindBoolean {
		if b, ok := value.(bool); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
	}
	return value
}

// decodeValue converts a raw cell back to the field's in-memory type, so
// that record values never expose the backend representation
func decodeValue(field *models.Field, raw interface{}) interface{} {
	if raw == nil {
		return nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	if t, ok := raw.(time.Time); ok {
		raw = t.Format(models.DateFormat)
	}
	if field.Kind() == models.KindBoolean {
		switch v := raw.(type) {
		case bool:
			return v
		case int64:
			return v != 0
		case string:
			b, err := models.ParseBool(v)
			if err == nil {
				return b
			}
		}
	}
	return raw
}
