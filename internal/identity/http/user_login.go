package http

import (
	"net/http"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
)

type LoginHandler struct {
	Credentials *service.CredentialService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchanges an email and password for a bearer session token. Email verification is not required.
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid login credentials"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/user/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidRequest(w, err)
		return
	}
	if err := validateLogin(req); err != nil {
		invalidRequest(w, err)
		return
	}

	session, err := h.Credentials.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Token:     session.AccessToken,
		TokenType: session.TokenType,
		ExpiresIn: session.ExpiresIn(),
	})
}
