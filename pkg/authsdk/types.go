package authsdk

import (
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// Error is the machine-readable code (e.g. "invalid_request", "duplicate_email")
	Error string `json:"error" example:"invalid_request"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description" example:"email: must be a valid email address."`
}

// ============================================================================
// User Types
// ============================================================================

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email       string `json:"email" example:"jane@example.com"`
	PhoneNumber string `json:"phone_number" example:"0811111111"`
	Password    string `json:"password" example:"correct horse"`

	// Role is one of ADMIN, OWNER, AGENT, PAINTER, FLIGHTER, CLIENT
	Role string `json:"role" example:"CLIENT"`
}

// UserResponse is the public view of an account. It never carries the
// password hash or a secret token.
type UserResponse struct {
	ID            string `json:"id" example:"01JAB3S4Q6RM2Z7K0N5YH8W1XC"`
	Email         string `json:"email" example:"jane@example.com"`
	PhoneNumber   string `json:"phone_number,omitempty" example:"+27811111111"`
	Role          string `json:"role" example:"CLIENT"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at" example:"2025-01-01T00:00:00Z"`
	UpdatedAt     string `json:"updated_at" example:"2025-01-01T00:00:00Z"`
}

// RegisterResponse wraps the created account.
type RegisterResponse struct {
	User UserResponse `json:"user"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// LoginResponse carries the bearer session token.
type LoginResponse struct {
	// Token is the signed JWT; its sub is the email and its scope the role
	Token string `json:"token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime of the token in seconds
	ExpiresIn int64 `json:"expires_in" example:"300"`
}

// ForgotPasswordRequest asks for a password reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"jane@example.com"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password" example:"battery staple"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Credentials updated"`
}

// MeResponse describes the bearer of a session token.
type MeResponse struct {
	Email string `json:"email" example:"jane@example.com"`
	Role  string `json:"role" example:"CLIENT"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the JSON Web Key Set.
// This is returned from the GET /.well-known/jwks.json endpoint and contains
// public keys used to verify JWT signatures.
type JWKSResponse jwtx.JWKS
