package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
)

const (
	maxBodyBytes = 1 << 20

	// DefaultPhoneRegion is used for numbers written without a country code.
	DefaultPhoneRegion = "ZA"

	// bcrypt ignores anything past 72 bytes.
	maxPasswordBytes = 72
)

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func invalidRequest(w http.ResponseWriter, err error) {
	authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
}

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(1, maxPasswordBytes),
}

// registration is a validated registration payload.
type registration struct {
	Email       string
	PhoneNumber string
	Password    string
	Role        domain.Role
}

func validateRegister(req authsdk.RegisterRequest) (registration, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&req.PhoneNumber, validation.By(validPhoneNumber)),
		validation.Field(&req.Password, passwordRules...),
		validation.Field(&req.Role, validation.Required, validation.By(validRole)),
	)
	if err != nil {
		return registration{}, err
	}

	role, _ := domain.ParseRole(req.Role)
	return registration{
		Email:       req.Email,
		PhoneNumber: normalizePhoneNumber(req.PhoneNumber),
		Password:    req.Password,
		Role:        role,
	}, nil
}

func validateLogin(req authsdk.LoginRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required),
	)
}

func validateForgotPassword(req authsdk.ForgotPasswordRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required, is.Email),
	)
}

func validateResetPassword(req authsdk.ResetPasswordRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Token, validation.Required),
		validation.Field(&req.Password, passwordRules...),
	)
}

func validRole(value any) error {
	s, _ := value.(string)
	if _, err := domain.ParseRole(s); err != nil {
		return errors.New("must be one of ADMIN, OWNER, AGENT, PAINTER, FLIGHTER, CLIENT")
	}
	return nil
}

func validPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// normalizePhoneNumber returns the E.164 form of a validated number.
func normalizePhoneNumber(s string) string {
	if s == "" {
		return ""
	}
	num, err := phonenumbers.Parse(s, DefaultPhoneRegion)
	if err != nil {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
