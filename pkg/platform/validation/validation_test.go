package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "schemagate/pkg/domain-errors"
)

type sampleRequest struct {
	Text       string `json:"text" validate:"notblank"`
	SchemaJSON string `json:"schema_json" validate:"required"`
	Hint       string `json:"hint" validate:"max=5"`
}

func TestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, Validate(&sampleRequest{Text: "x", SchemaJSON: `{"a":"string"}`}))
	})

	cases := []struct {
		name string
		req  sampleRequest
		want string
	}{
		{"blank text", sampleRequest{Text: "  ", SchemaJSON: "{}"}, "text must not be blank"},
		{"missing schema", sampleRequest{Text: "x"}, "schema_json is required"},
		{"hint too long", sampleRequest{Text: "x", SchemaJSON: "{}", Hint: "toolong"}, "hint must be at most 5 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.want, err.Error())
		})
	}
}
