package models

import "fmt"

// Names of the automatic fields every table carries. Their values are
// assigned by the storage layer and never supplied by callers.
const (
	FieldID           = "ID"
	FieldDisplayName  = "display_name"
	FieldCreationDate = "creation_date"
)

// DisplayNameSeparator joins the display-name parts of a record
const DisplayNameSeparator = " - "

// Options holds model-wide validation policy
type Options struct {
	// CheckFilepathExists makes Filepath validation require the path to
	// exist on disk. Off by default: it makes validation depend on the
	// environment the process runs in.
	CheckFilepathExists bool
}

// Field describes one column of a table. The Table back-reference and
// ForeignKeyTable are relationship pointers, not owners: tables may
// reference each other in cycles.
type Field struct {
	Table             *Table
	Name              string
	BaseKind          FieldKind
	ForeignKeyTable   *Table
	PartOfDisplayName bool
	Mandatory         bool
	Editable          bool
	Automatic         bool
	DefaultValue      string
	DisplayOrder      int
}

// Kind reports KindForeignKey for linked fields, the declared kind otherwise
func (f *Field) Kind() FieldKind {
	if f.ForeignKeyTable != nil {
		return KindForeignKey
	}
	return f.BaseKind
}

// IsForeignKey reports whether the field references another table
func (f *Field) IsForeignKey() bool {
	return f.ForeignKeyTable != nil
}

// StorageType returns the SQLite column type for the field
func (f *Field) StorageType() string {
	return f.BaseKind.StorageType()
}

// Validate checks a value against the field's kind and mandatory flag
func (f *Field) Validate(value interface{}) bool {
	return kindSpecs[f.Kind()].validate(f, value)
}

// Equal reports field identity: same owning table and same name
func (f *Field) Equal(other *Field) bool {
	if other == nil {
		return false
	}
	return f.Table == other.Table && f.Name == other.Name
}

func (f *Field) String() string {
	if f.Table != nil {
		return f.Table.Name + "." + f.Name
	}
	return f.Name
}

func (f *Field) checkFilepathExists() bool {
	if f.Table != nil && f.Table.Model != nil {
		return f.Table.Model.Options.CheckFilepathExists
	}
	return false
}

// Table is one table of the data model. It owns its fields; SortRowsBy
// points at one of them.
type Table struct {
	Model      *DataModel
	Name       string
	Fields     []*Field
	SortRowsBy *Field
}

// Field fetches one field by name. Zero and multiple matches are distinct
// errors: names are unique by construction, so a multiplicity means the
// model is corrupted.
func (t *Table) Field(name string) (*Field, error) {
	var found *Field
	for _, f := range t.Fields {
		if f.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s in %s", ErrFieldAmbiguous, name, t.Name)
		}
		found = f
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrFieldNotFound, name, t.Name)
	}
	return found, nil
}

// FieldsByName fetches several fields, preserving the given order
func (t *Table) FieldsByName(names []string) ([]*Field, error) {
	fields := make([]*Field, 0, len(names))
	for _, name := range names {
		f, err := t.Field(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// DisplayNameFields returns the fields composing the derived display name,
// in declaration order
func (t *Table) DisplayNameFields() []*Field {
	var parts []*Field
	for _, f := range t.Fields {
		if f.PartOfDisplayName {
			parts = append(parts, f)
		}
	}
	return parts
}

// Equal compares tables by name and field set
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.Name != other.Name || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if f.Name != other.Fields[i].Name {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	return t.Name
}

// DataModel owns the full set of tables of one definition workbook
type DataModel struct {
	Path    string
	Tables  []*Table
	Options Options
}

// Table fetches one table by name, failing loudly on zero or multiple matches
func (m *DataModel) Table(name string) (*Table, error) {
	var found *Table
	for _, t := range m.Tables {
		if t.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrTableAmbiguous, name)
		}
		found = t
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return found, nil
}
