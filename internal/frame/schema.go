package frame

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind enumerates the column types a Table can hold.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}

// Numeric reports whether values of this kind participate in statistics.
func (k Kind) Numeric() bool { return k == KindInt || k == KindDouble }

// ParseKind accepts the names produced by Kind.String plus a few common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "str":
		return KindString, nil
	case "int", "integer", "long", "bigint":
		return KindInt, nil
	case "double", "float", "real", "decimal":
		return KindDouble, nil
	case "boolean", "bool":
		return KindBool, nil
	default:
		return KindString, fmt.Errorf("unknown column type %q", s)
	}
}

// MarshalYAML writes the kind by name.
func (k Kind) MarshalYAML() (interface{}, error) { return k.String(), nil }

// UnmarshalYAML reads a kind by name.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseKind(node.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Field describes one column.
type Field struct {
	Name     string `yaml:"name" json:"name"`
	Kind     Kind   `yaml:"type" json:"type"`
	Nullable bool   `yaml:"nullable" json:"nullable"`
}

// Schema is the ordered list of fields shared by every row of a Table.
type Schema struct {
	Fields []Field `yaml:"fields" json:"fields"`
}

// NewSchema validates field names: non-empty and unique.
func NewSchema(fields ...Field) (Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return Schema{}, fmt.Errorf("field %d: empty name", i)
		}
		if _, ok := seen[f.Name]; ok {
			return Schema{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Schema{Fields: out}, nil
}

// MustSchema is NewSchema for static declarations.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s Schema) Len() int { return len(s.Fields) }

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the field called name.
func (s Schema) Lookup(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// ReadSchema decodes a YAML schema document:
//
//	fields:
//	  - {name: id_1, type: int}
//	  - {name: cmp_plz, type: int, nullable: true}
func ReadSchema(r io.Reader) (Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Schema{}, errors.New("schema document is empty")
		}
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	if len(s.Fields) == 0 {
		return Schema{}, errors.New("schema has no fields")
	}
	return NewSchema(s.Fields...)
}

// WriteYAML encodes the schema in the format accepted by ReadSchema.
func (s Schema) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}
