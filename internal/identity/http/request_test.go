package http

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
)

func TestValidateRegister_Normalises(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		phone     string
		wantPhone string
	}{
		{"local number", "081 111 1111", "+27811111111"},
		{"international number", "+27 81 111 1111", "+27811111111"},
		{"no number", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateRegister(authsdk.RegisterRequest{
				Email:       " a@x.com ",
				PhoneNumber: tt.phone,
				Password:    "pw",
				Role:        "flighter",
			})
			require.NoError(t, err)
			require.Equal(t, "a@x.com", got.Email)
			require.Equal(t, tt.wantPhone, got.PhoneNumber)
			require.Equal(t, domain.RoleFlighter, got.Role)
		})
	}
}

func TestValidateResetPassword(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateResetPassword(authsdk.ResetPasswordRequest{Token: "t", Password: "p"}))
	require.Error(t, validateResetPassword(authsdk.ResetPasswordRequest{Password: "p"}))
	require.Error(t, validateResetPassword(authsdk.ResetPasswordRequest{Token: "t"}))
}
