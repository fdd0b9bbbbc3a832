package http

import (
	"net/http"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
)

type MeHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Describe the session
//	@Description	Returns the email and role carried by the bearer session token.
//	@Tags			User
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"email, role"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing session token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Token carries no known role"
//	@Router			/user/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Email: claims.Subject,
		Role:  claims.Scope,
	})
}
