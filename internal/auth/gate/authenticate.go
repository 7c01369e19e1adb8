package gate

import (
	"context"
	"errors"

	"schemagate/internal/auth/models"
	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/requestcontext"
)

// Authenticate verifies raw and returns the caller for the request context.
// Malformed and rejected credentials share one message so responses do not
// reveal which check failed.
func (g *Gate) Authenticate(ctx context.Context, raw string) (requestcontext.Caller, error) {
	identity, err := g.Verify(ctx, raw)
	if err != nil {
		return requestcontext.Caller{}, toDomainError(err)
	}
	return requestcontext.Caller{
		TokenID: identity.TokenID,
		OwnerID: identity.OwnerID,
		Scopes:  identity.Scopes,
	}, nil
}

func toDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrMalformedCredential), errors.Is(err, ErrUnauthorized):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid credential")
	case errors.Is(err, ErrStoreUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "authentication service unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeCanceled, "request canceled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "credential verification failed")
	}
}
