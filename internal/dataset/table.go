// Package dataset holds the schema-flexible tabular form raw inputs arrive
// in before the cleaner types them.
package dataset

import "fmt"

// Row is one raw record keyed by column name. All cells are untyped strings
// exactly as read from the source file.
type Row map[string]string

// RawTable is an ordered set of raw rows for one source table.
type RawTable struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Has reports whether the table carries the named column.
func (t *RawTable) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Rename applies a schema fix-up, renaming a source column to its canonical
// name. Missing source columns are ignored.
func (t *RawTable) Rename(from, to string) {
	if !t.Has(from) {
		return
	}
	for i, c := range t.Columns {
		if c == from {
			t.Columns[i] = to
		}
	}
	for _, row := range t.Rows {
		if v, ok := row[from]; ok {
			row[to] = v
			delete(row, from)
		}
	}
}

// Require returns a MissingFieldError when the named column is absent.
func (t *RawTable) Require(column string) error {
	if t == nil {
		return &MissingFieldError{Table: "(absent)", Field: column}
	}
	if !t.Has(column) {
		return &MissingFieldError{Table: t.Name, Field: column}
	}
	return nil
}

// MissingFieldError signals that a column required by a core computation is
// absent from its table. Schema drift on other columns is only warned about;
// this one fails the run.
type MissingFieldError struct {
	Table string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q in table %q", e.Field, e.Table)
}
