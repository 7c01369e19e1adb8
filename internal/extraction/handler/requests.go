package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/platform/validation"
)

// HTTP request DTOs. Text and message are passed to the model verbatim;
// only the auxiliary fields are trimmed.

type ExtractRequest struct {
	Text         string          `json:"text" validate:"required,notblank"`
	SchemaJSON   json.RawMessage `json:"schema_json"`
	Instructions string          `json:"instructions" validate:"max=2000"`
}

func (r *ExtractRequest) Normalize() {
	if r == nil {
		return
	}
	r.Instructions = strings.TrimSpace(r.Instructions)
	r.SchemaJSON = bytes.TrimSpace(r.SchemaJSON)
}

func (r *ExtractRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if len(r.SchemaJSON) == 0 || bytes.Equal(r.SchemaJSON, []byte("null")) {
		return dErrors.New(dErrors.CodeUnprocessable, "schema_json is required")
	}
	return nil
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,notblank"`
	System  string `json:"system" validate:"max=4000"`
}

func (r *ChatRequest) Normalize() {
	if r == nil {
		return
	}
	r.System = strings.TrimSpace(r.System)
}

func (r *ChatRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
