// Package coerce turns raw model output into a result shaped exactly like
// the caller's schema.
//
// Coerce fails only when no JSON object can be recovered. Once an object is
// parsed the result is total: every declared field is present, in
// declaration order, holding either a value of the declared type or null.
package coerce

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"schemagate/internal/extraction/schema"
)

// Adjustment records what happened to a field on its way into the result.
type Adjustment string

const (
	// Converted means the value had the wrong type and was converted.
	Converted Adjustment = "converted"
	// Nulled means the value had the wrong type and could not be converted.
	Nulled Adjustment = "nulled"
)

var (
	// looseNumber is what a model may write for a number: optional sign,
	// bare leading or trailing dot, leading zeros.
	looseNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	// jsonNumber is the JSON number grammar.
	jsonNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)
	// groupedNumber only accepts commas that separate thousands.
	groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

var currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "")

// Result is a schema-shaped extraction. Values are string, json.Number, bool
// or nil.
type Result struct {
	names       []string
	values      map[string]any
	adjustments map[string]Adjustment
	repaired    bool
}

// Keys returns the field names in declaration order.
func (r *Result) Keys() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the value for name and whether name is a result key.
func (r *Result) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Adjustments returns the fields whose values were converted or nulled.
func (r *Result) Adjustments() map[string]Adjustment {
	out := make(map[string]Adjustment, len(r.adjustments))
	for k, v := range r.adjustments {
		out[k] = v
	}
	return out
}

// Repaired reports whether the output only parsed after the repair pass.
func (r *Result) Repaired() bool {
	return r.repaired
}

// MarshalJSON writes the fields in declaration order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Coerce recovers a JSON object from raw and shapes it to d.
//
// Errors: *Error with KindNoJSONFound or KindMalformedJSON. No other error
// is returned, and nothing panics on hostile input.
func Coerce(raw string, d *schema.Declaration) (*Result, error) {
	obj, repaired, err := recoverObject(raw)
	if err != nil {
		return nil, err
	}

	res := &Result{
		names:       d.Names(),
		values:      make(map[string]any, d.Len()),
		adjustments: make(map[string]Adjustment),
		repaired:    repaired,
	}
	for _, f := range d.Fields() {
		v, present := obj[f.Name]
		if !present || v == nil {
			res.values[f.Name] = nil
			continue
		}
		out, adj := shape(v, f.Type)
		res.values[f.Name] = out
		if adj != "" {
			res.adjustments[f.Name] = adj
		}
	}
	return res, nil
}

func recoverObject(raw string) (map[string]any, bool, error) {
	cands := candidates(raw)
	if len(cands) == 0 {
		if strings.Contains(raw, "{") {
			return nil, false, &Error{Kind: KindMalformedJSON, Raw: raw, Err: errors.New("no brace span opens an object")}
		}
		return nil, false, &Error{Kind: KindNoJSONFound, Raw: raw}
	}

	var firstErr error
	for _, c := range cands {
		obj, err := parseObject(c)
		if err == nil {
			return obj, false, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	obj, err := parseObject(repair(longest(cands)))
	if err != nil {
		return nil, false, &Error{Kind: KindMalformedJSON, Raw: raw, Err: errors.Join(firstErr, err)}
	}
	return obj, true, nil
}

func parseObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("candidate is not an object")
	}
	return obj, nil
}

// shape converts v to t once. Objects and arrays never fit a primitive field.
func shape(v any, t schema.FieldType) (any, Adjustment) {
	switch t {
	case schema.String:
		switch x := v.(type) {
		case string:
			return x, ""
		case json.Number:
			return x.String(), Converted
		case bool:
			return strconv.FormatBool(x), Converted
		}
	case schema.Number:
		switch x := v.(type) {
		case json.Number:
			return x, ""
		case string:
			if n, ok := parseNumber(x); ok {
				return n, Converted
			}
		}
	case schema.Boolean:
		switch x := v.(type) {
		case bool:
			return x, ""
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true":
				return true, Converted
			case "false":
				return false, Converted
			}
		}
	default:
		panic(fmt.Sprintf("coerce: unhandled field type %v", t))
	}
	return nil, Nulled
}

// parseNumber accepts decimal strings with currency symbols and comma
// thousands grouping, e.g. "$1,234.50". The cleaned literal is kept as
// written so precision and trailing zeros survive; anything ambiguous,
// such as "1,5" or "12 34", is rejected.
func parseNumber(s string) (json.Number, bool) {
	s = strings.TrimSpace(currencySymbols.Replace(strings.TrimSpace(s)))
	if groupedNumber.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if !looseNumber.MatchString(s) {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}
	if lit := strings.TrimPrefix(s, "+"); jsonNumber.MatchString(lit) {
		return json.Number(lit), true
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), true
}
