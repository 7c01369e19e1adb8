package service

import (
	"context"
	"errors"

	"schemagate/internal/extraction/coerce"
	"schemagate/internal/extraction/prompt"
	"schemagate/internal/extraction/schema"
	"schemagate/internal/inference"
	dErrors "schemagate/pkg/domain-errors"
)

// toDomainError translates component errors into domain codes, keeping the
// original error in the chain so handlers can still reach *coerce.Error.
func toDomainError(err error) error {
	var ce *coerce.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		if ce.Kind == coerce.KindNoJSONFound {
			return dErrors.Wrap(err, dErrors.CodeUnprocessable, "model output contained no JSON object")
		}
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, "model output was not valid JSON")
	case errors.Is(err, prompt.ErrInputTooLarge):
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, err.Error())
	case errors.Is(err, prompt.ErrInstructionsTooLong):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	case errors.Is(err, schema.ErrEmptySchema),
		errors.Is(err, schema.ErrUnsupportedType),
		errors.Is(err, schema.ErrInvalidField),
		errors.Is(err, prompt.ErrNoSchema):
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, err.Error())
	}

	switch inference.KindOf(err) {
	case inference.KindTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "inference backend timed out")
	case inference.KindUnavailable:
		return dErrors.Wrap(err, dErrors.CodeBadGateway, "inference backend unavailable")
	case inference.KindEmptyCompletion:
		return dErrors.Wrap(err, dErrors.CodeBadGateway, "inference backend returned an empty completion")
	case inference.KindBadResponse:
		return dErrors.Wrap(err, dErrors.CodeBadGateway, "inference backend returned an invalid response")
	case inference.KindCanceled:
		return dErrors.Wrap(err, dErrors.CodeCanceled, "request canceled")
	}

	if errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeCanceled, "request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "extraction failed")
}

// outcome labels an error for metrics.
func outcome(err error) string {
	var ce *coerce.Error
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ce):
		return string(ce.Kind)
	case inference.KindOf(err) != "":
		return "inference_" + string(inference.KindOf(err))
	case errors.Is(err, prompt.ErrInputTooLarge):
		return "input_too_large"
	default:
		return "rejected"
	}
}
