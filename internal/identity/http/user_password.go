package http

import (
	"errors"
	"net/http"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/slogx"
)

const (
	msgResetLinkSent      = "A password reset link has been sent to your email"
	msgCredentialsUpdated = "Credentials updated"
)

type ForgotPasswordHandler struct {
	Credentials *service.CredentialService
}

// ServeHTTP godoc
//
//	@Summary		Request a password reset
//	@Description	Emails a password reset link. The response is identical whether or not the email is registered.
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	authsdk.MessageResponse			"Acknowledgement"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Validation failed"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/user/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidRequest(w, err)
		return
	}
	if err := validateForgotPassword(req); err != nil {
		invalidRequest(w, err)
		return
	}

	err := h.Credentials.RequestPasswordReset(ctx, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnknownEmail):
		slogx.FromContext(ctx).Info("password reset requested for unknown email")
	default:
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msgResetLinkSent})
}

type ResetPasswordHandler struct {
	Credentials *service.CredentialService
}

// ServeHTTP godoc
//
//	@Summary		Reset a password
//	@Description	Sets a new password using the token from a reset link. The token is single use.
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200		{object}	authsdk.MessageResponse			"Credentials updated"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Validation failed, unknown token or expired token"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Router			/user/reset-password [post].
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidRequest(w, err)
		return
	}
	if err := validateResetPassword(req); err != nil {
		invalidRequest(w, err)
		return
	}

	if err := h.Credentials.ResetPassword(ctx, req.Token, req.Password); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msgCredentialsUpdated})
}
