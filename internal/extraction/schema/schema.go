// Package schema parses the caller-supplied field declaration that drives
// extraction: an ordered, flat mapping from field name to primitive type.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"schemagate/pkg/platform/validation"
)

var (
	// ErrEmptySchema means the declaration has no fields.
	ErrEmptySchema = errors.New("schema must declare at least one field")
	// ErrUnsupportedType means a field's type tag is not string, number or boolean.
	ErrUnsupportedType = errors.New("unsupported schema type")
	// ErrInvalidField covers malformed declarations: bad names, duplicates,
	// too many fields, or a value that is not a JSON object.
	ErrInvalidField = errors.New("invalid schema field")
)

// FieldType is the primitive type a field's value must have.
type FieldType int

const (
	String FieldType = iota + 1
	Number
	Boolean
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// ParseFieldType accepts exactly "string", "number" or "boolean",
// ignoring case and surrounding whitespace.
func ParseFieldType(tag string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "string":
		return String, nil
	case "number":
		return Number, nil
	case "boolean":
		return Boolean, nil
	default:
		return 0, fmt.Errorf("%w %q: expected string, number or boolean", ErrUnsupportedType, tag)
	}
}

// Field is one declared name and its type.
type Field struct {
	Name string
	Type FieldType
}

// Declaration is an ordered list of uniquely named fields. The zero value is
// not valid; build one with Parse or New.
type Declaration struct {
	fields []Field
	index  map[string]int
}

// New validates fields and returns a Declaration preserving their order.
func New(fields ...Field) (*Declaration, error) {
	if len(fields) == 0 {
		return nil, ErrEmptySchema
	}
	if len(fields) > validation.MaxSchemaFields {
		return nil, fmt.Errorf("%w: at most %d fields allowed", ErrInvalidField, validation.MaxSchemaFields)
	}

	d := &Declaration{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if err := checkName(f.Name); err != nil {
			return nil, err
		}
		if _, dup := d.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidField, f.Name)
		}
		switch f.Type {
		case String, Number, Boolean:
		default:
			return nil, fmt.Errorf("%w for field %q", ErrUnsupportedType, f.Name)
		}
		d.index[f.Name] = len(d.fields)
		d.fields = append(d.fields, f)
	}
	return d, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: field name must not be blank", ErrInvalidField)
	}
	if utf8.RuneCountInString(name) > validation.MaxFieldNameChars {
		return fmt.Errorf("%w: field name exceeds %d characters", ErrInvalidField, validation.MaxFieldNameChars)
	}
	return nil
}

// Parse decodes a JSON object of name → type tag, keeping key order.
// Type tags that are not strings are reported as ErrUnsupportedType.
func Parse(data []byte) (*Declaration, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: schema_json must be a JSON object", ErrInvalidField)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		name, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		var tag string
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, fmt.Errorf("%w for field %q: type must be a string", ErrUnsupportedType, name)
		}
		ft, err := ParseFieldType(tag)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Type: ft})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after schema object", ErrInvalidField)
	}
	return New(fields...)
}

// Fields returns the declared fields in order. The slice is a copy.
func (d *Declaration) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Names returns the field names in declaration order.
func (d *Declaration) Names() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the type of name and whether it is declared.
func (d *Declaration) Lookup(name string) (FieldType, bool) {
	i, ok := d.index[name]
	if !ok {
		return 0, false
	}
	return d.fields[i].Type, true
}

func (d *Declaration) Len() int {
	return len(d.fields)
}

// MarshalJSON renders the declaration back as an ordered name → type object.
func (d *Declaration) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(`:"`)
		buf.WriteString(f.Type.String())
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
