package http

import (
	"net/http"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
)

const (
	msgEmailVerified    = "Email has been verified."
	msgEmailNotVerified = "Could not verify email."
)

type VerifyEmailHandler struct {
	Credentials *service.CredentialService
}

// ServeHTTP godoc
//
//	@Summary		Verify an email address
//	@Description	Consumes the verification token mailed at registration. The token may be given as a path segment or as the token query parameter.
//	@Tags			User
//	@Produce		json
//	@Param			token	path		string					true	"Verification token"
//	@Success		200		{object}	authsdk.MessageResponse	"Verified or not"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Unknown token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/user/verify-email/{token} [get].
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.PathValue("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	ok, err := h.Credentials.VerifyEmail(ctx, token)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	msg := msgEmailVerified
	if !ok {
		msg = msgEmailNotVerified
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msg})
}
