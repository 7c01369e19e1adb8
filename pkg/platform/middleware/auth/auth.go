package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/platform/httputil"
	"schemagate/pkg/requestcontext"
)

// APIKeyHeader is the alternative credential header accepted next to
// "Authorization: Bearer".
const APIKeyHeader = "X-API-Key"

// CredentialVerifier resolves a raw credential to the caller it belongs to.
// Failures are domain errors: CodeUnauthorized for rejected credentials and
// CodeUnavailable when the credential store could not be consulted.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, raw string) (requestcontext.Caller, error)
}

// RequireCredential returns middleware that verifies the caller's credential
// and stores the resulting Caller in the request context.
func RequireCredential(verifier CredentialVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			raw, ok := credentialFromRequest(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing credential",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing credential"))
				return
			}

			caller, err := verifier.Authenticate(ctx, raw)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnavailable) {
					logger.ErrorContext(ctx, "credential verification unavailable",
						"error", err,
						"request_id", requestID,
					)
				} else {
					logger.WarnContext(ctx, "unauthorized access - credential rejected",
						"error", err,
						"request_id", requestID,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			logger.DebugContext(ctx, "credential verified",
				"request_id", requestID,
				"tenant_id", caller.OwnerID,
				"token_id", caller.TokenID,
			)
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

// credentialFromRequest reads "Authorization: Bearer <key>" first and falls
// back to the X-API-Key header. Other Authorization schemes, such as Basic
// auth added by a proxy, are ignored.
func credentialFromRequest(r *http.Request) (string, bool) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	return key, key != ""
}
