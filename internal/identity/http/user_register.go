package http

import (
	"net/http"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
)

type RegisterHandler struct {
	Credentials *service.CredentialService
}

// ServeHTTP godoc
//
//	@Summary		Register an account
//	@Description	Creates an unverified account and emails a verification link to it.
//	@Description	Phone numbers without a country code are read as South African and stored in E.164 form.
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Account details"
//	@Success		201		{object}	authsdk.RegisterResponse	"The created account"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed"
//	@Failure		409		{object}	authsdk.ErrorResponse		"Email already exists"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/user/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidRequest(w, err)
		return
	}

	in, err := validateRegister(req)
	if err != nil {
		invalidRequest(w, err)
		return
	}

	account, err := h.Credentials.Register(ctx, service.RegisterInput{
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Password:    in.Password,
		Role:        in.Role,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{User: userResponse(account)})
}

func userResponse(a domain.Account) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:            a.ID,
		Email:         a.Email,
		PhoneNumber:   a.PhoneNumber,
		Role:          a.Role.String(),
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
