package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/slogx"
)

// writeServiceError maps a credential lifecycle error onto its HTTP response.
// Server faults are logged with their cause and never described.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	reason := service.ReasonOf(err)

	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		authsdk.ErrDuplicateEmail.WithDescription(reason).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WithDescription(reason).WriteError(w)
	case errors.Is(err, service.ErrTokenNotFound):
		authsdk.ErrTokenNotFound.WithDescription(reason).WriteError(w)
	case errors.Is(err, service.ErrTokenExpired):
		authsdk.ErrTokenExpired.WithDescription(reason).WriteError(w)
	case errors.Is(err, service.ErrPasswordTooLong):
		authsdk.ErrInvalidRequest.WithDescription(reason).WriteError(w)
	default:
		slogx.FromContext(ctx).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
