package frame

// Col is a column reference resolved against a schema by Table.Col.
type Col struct {
	name  string
	index int
	kind  Kind
}

func (c Col) Name() string { return c.name }
func (c Col) Kind() Kind   { return c.kind }

// Row is a read-only view of one table row.
type Row struct {
	schema *Schema
	vals   []Value
}

// Get returns the value of c. A reference that does not belong to the row's
// schema yields a null of the reference's kind.
func (r Row) Get(c Col) Value {
	if c.index < len(r.vals) && r.schema.Fields[c.index].Name == c.name {
		return r.vals[c.index]
	}
	if i := r.schema.Index(c.name); i >= 0 {
		return r.vals[i]
	}
	return Null(c.kind)
}

// At returns the value at position i.
func (r Row) At(i int) Value { return r.vals[i] }

// Len returns the number of values.
func (r Row) Len() int { return len(r.vals) }

// Values returns a copy of the row.
func (r Row) Values() []Value {
	out := make([]Value, len(r.vals))
	copy(out, r.vals)
	return out
}

// Predicate selects rows.
type Predicate func(Row) bool

// Equals matches rows whose c value equals v. Nulls never match.
func Equals(c Col, v Value) Predicate {
	return func(r Row) bool {
		got := r.Get(c)
		return !got.IsNull() && got.Equal(v)
	}
}

// Not negates p.
func Not(p Predicate) Predicate { return func(r Row) bool { return !p(r) } }
