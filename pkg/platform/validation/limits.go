package validation

import (
	"fmt"
	"unicode/utf8"

	dErrors "schemagate/pkg/domain-errors"
)

// Request size defaults. The text ceiling itself is configurable
// (MAX_INPUT_CHARS); these bound the auxiliary fields.
const (
	// DefaultMaxBodyBytes bounds any request body (1 MiB).
	DefaultMaxBodyBytes = 1 << 20

	// DefaultMaxInputChars bounds extraction text and chat messages.
	DefaultMaxInputChars = 20000

	// MaxInstructionsChars bounds the optional extraction instructions.
	MaxInstructionsChars = 2000

	// MaxSystemPromptChars bounds the optional chat system prompt.
	MaxSystemPromptChars = 4000

	// MaxSchemaFields bounds the number of fields in a schema declaration.
	MaxSchemaFields = 64

	// MaxFieldNameChars bounds a single schema field name.
	MaxFieldNameChars = 128
)

// CheckCount validates that a count does not exceed max.
func CheckCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckRuneLength validates that value has at most max characters (runes).
func CheckRuneLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d characters", fieldName, max))
	}
	return nil
}
