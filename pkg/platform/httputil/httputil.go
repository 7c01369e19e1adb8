package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "schemagate/pkg/domain-errors"
)

// StatusClientClosedRequest is the non-standard status logged when the caller
// disconnects before the response is ready.
const StatusClientClosedRequest = 499

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithFields(w, err, nil)
}

// WriteErrorWithFields writes the standard error body plus any extra fields.
// Extra fields never override "error" or "error_description".
func WriteErrorWithFields(w http.ResponseWriter, err error, extra map[string]any) {
	status := http.StatusInternalServerError
	response := map[string]any{
		"error": DomainCodeToHTTPCode(dErrors.CodeInternal),
	}

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status = DomainCodeToHTTPStatus(domainErr.Code)
		response["error"] = DomainCodeToHTTPCode(domainErr.Code)
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
	}

	for k, v := range extra {
		if _, taken := response[k]; taken {
			continue
		}
		response[k] = v
	}
	WriteJSON(w, status, response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case dErrors.CodeCanceled:
		return StatusClientClosedRequest
	case dErrors.CodeBadGateway:
		return http.StatusBadGateway
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to HTTP error codes (for JSON response).
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodePayloadTooLarge:
		return "payload_too_large"
	case dErrors.CodeUnprocessable:
		return "unprocessable_entity"
	case dErrors.CodeCanceled:
		return "client_closed_request"
	case dErrors.CodeBadGateway:
		return "bad_gateway"
	case dErrors.CodeUnavailable:
		return "service_unavailable"
	case dErrors.CodeTimeout:
		return "inference_timeout"
	default:
		return "internal_error"
	}
}
