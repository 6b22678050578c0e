// Package frame holds the in-memory tabular model: typed schemas, nullable
// values and immutable tables. Every transform returns a new Table.
package frame

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrUnknownColumn is returned when a column reference names a field the
// schema does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Table is an immutable ordered collection of rows sharing one schema.
type Table struct {
	schema Schema
	rows   [][]Value
}

// New validates rows against schema and returns a table that owns them.
// Callers must not modify rows afterwards.
func New(schema Schema, rows [][]Value) (*Table, error) {
	if _, err := NewSchema(schema.Fields...); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("row %d: %d values, schema has %d fields", i, len(row), schema.Len())
		}
		for j, v := range row {
			f := schema.Fields[j]
			if v.IsNull() {
				if !f.Nullable {
					return nil, fmt.Errorf("row %d: null in non-nullable column %q", i, f.Name)
				}
				continue
			}
			if v.Kind() != f.Kind {
				return nil, fmt.Errorf("row %d: column %q holds %s, want %s", i, f.Name, v.Kind(), f.Kind)
			}
		}
	}
	return &Table{schema: schema, rows: rows}, nil
}

// Empty returns a table with schema and no rows.
func Empty(schema Schema) *Table { return &Table{schema: schema} }

func (t *Table) Schema() Schema { return t.schema }
func (t *Table) Len() int       { return len(t.rows) }

// Row returns row i.
func (t *Table) Row(i int) Row { return Row{schema: &t.schema, vals: t.rows[i]} }

// Each calls fn for every row in order and stops at the first error.
func (t *Table) Each(fn func(i int, r Row) error) error {
	for i, vals := range t.rows {
		if err := fn(i, Row{schema: &t.schema, vals: vals}); err != nil {
			return err
		}
	}
	return nil
}

// Col resolves a column reference by name.
func (t *Table) Col(name string) (Col, error) {
	i := t.schema.Index(name)
	if i < 0 {
		return Col{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	f := t.schema.Fields[i]
	return Col{name: f.Name, index: i, kind: f.Kind}, nil
}

// Cols resolves several references, failing on the first unknown name.
func (t *Table) Cols(names ...string) ([]Col, error) {
	out := make([]Col, 0, len(names))
	for _, n := range names {
		c, err := t.Col(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Column returns a copy of the values held by c.
func (t *Table) Column(c Col) ([]Value, error) {
	idx, err := t.bind(c)
	if err != nil {
		return nil, err
	}
	return lo.Map(t.rows, func(row []Value, _ int) Value { return row[idx] }), nil
}

// Filter keeps the rows for which pred holds.
func (t *Table) Filter(pred Predicate) *Table {
	kept := lo.Filter(t.rows, func(row []Value, _ int) bool {
		return pred(Row{schema: &t.schema, vals: row})
	})
	return &Table{schema: t.schema, rows: kept}
}

// Select projects cols in the given order.
func (t *Table) Select(cols ...Col) (*Table, error) {
	idx := make([]int, len(cols))
	fields := make([]Field, len(cols))
	for i, c := range cols {
		j, err := t.bind(c)
		if err != nil {
			return nil, err
		}
		idx[i] = j
		fields[i] = t.schema.Fields[j]
	}
	schema, err := NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	rows := lo.Map(t.rows, func(row []Value, _ int) []Value {
		out := make([]Value, len(idx))
		for i, j := range idx {
			out[i] = row[j]
		}
		return out
	})
	return &Table{schema: schema, rows: rows}, nil
}

// WithColumn appends a derived column computed per row, replacing an
// existing column of the same name in place.
func (t *Table) WithColumn(f Field, fn func(Row) Value) (*Table, error) {
	pos := t.schema.Index(f.Name)
	fields := make([]Field, len(t.schema.Fields))
	copy(fields, t.schema.Fields)
	if pos < 0 {
		fields = append(fields, f)
	} else {
		fields[pos] = f
	}
	schema := Schema{Fields: fields}
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		v := fn(Row{schema: &t.schema, vals: row})
		if v.IsNull() && !f.Nullable {
			return nil, fmt.Errorf("row %d: null in non-nullable column %q", i, f.Name)
		}
		if !v.IsNull() && v.Kind() != f.Kind {
			return nil, fmt.Errorf("row %d: column %q got %s, want %s", i, f.Name, v.Kind(), f.Kind)
		}
		out := make([]Value, len(fields))
		copy(out, row)
		if pos < 0 {
			out[len(fields)-1] = v
		} else {
			out[pos] = v
		}
		rows[i] = out
	}
	return &Table{schema: schema, rows: rows}, nil
}

// FillNull replaces nulls in cols with fill, converted to each column's
// kind. Only numeric columns can be filled; other columns are untouched.
func (t *Table) FillNull(fill float64, cols ...Col) (*Table, error) {
	targets := map[int]Value{}
	for _, c := range cols {
		idx, err := t.bind(c)
		if err != nil {
			return nil, err
		}
		switch t.schema.Fields[idx].Kind {
		case KindInt:
			targets[idx] = IntValue(int64(fill))
		case KindDouble:
			targets[idx] = DoubleValue(fill)
		default:
			return nil, fmt.Errorf("fill null: column %q is %s, not numeric", c.name, t.schema.Fields[idx].Kind)
		}
	}
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		out := make([]Value, len(row))
		copy(out, row)
		for idx, v := range targets {
			if out[idx].IsNull() {
				out[idx] = v
			}
		}
		rows[i] = out
	}
	return &Table{schema: t.schema, rows: rows}, nil
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t
	}
	return &Table{schema: t.schema, rows: t.rows[:n]}
}

// bind maps a reference onto this table's layout, following the column by
// name when the reference was resolved against a related table.
func (t *Table) bind(c Col) (int, error) {
	if c.index < len(t.schema.Fields) && t.schema.Fields[c.index].Name == c.name {
		return c.index, nil
	}
	if i := t.schema.Index(c.name); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, c.name)
}
