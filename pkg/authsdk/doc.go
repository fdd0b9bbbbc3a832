/*
Package authsdk provides a client SDK for the OOH Marketplace identity service.

# Overview

SDKClient wraps every public endpoint of the service: account registration,
login, the password reset flow, email verification, and the health and JWKS
endpoints.

	client := authsdk.NewSDKClient("https://identity.example.com")

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:       "jane@example.com",
		PhoneNumber: "0811111111",
		Password:    "correct horse",
		Role:        "CLIENT",
	})

	login, err := client.Login(ctx, "jane@example.com", "correct horse")
	me, err := client.Me(ctx, login.Token)

# Password Reset

ForgotPassword always answers with the same message, so callers cannot use
it to discover which emails are registered. The token arrives by email and is
redeemed with ResetPassword:

	_, err := client.ForgotPassword(ctx, "jane@example.com")
	_, err = client.ResetPassword(ctx, tokenFromEmail, "battery staple")

# Error Handling

Non-2xx responses are returned as *APIError. The predefined errors match
with errors.Is on status and code:

	_, err := client.Login(ctx, email, "wrong")
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// bad email or password
	}

The same types are used by the server to write its error bodies.
*/
package authsdk
