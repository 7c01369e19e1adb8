package coerce

import "fmt"

// ErrorKind says why no JSON object could be recovered from model output.
type ErrorKind string

const (
	// KindNoJSONFound means the output contains no '{' at all.
	KindNoJSONFound ErrorKind = "no_json_found"
	// KindMalformedJSON means a candidate was found but it did not parse,
	// even after the repair pass.
	KindMalformedJSON ErrorKind = "malformed_json"
)

// Error carries the untouched model output for diagnostics.
type Error struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("coerce [%s]: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("coerce [%s]", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}
