package service

import (
	"net/url"
	"strings"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
)

const (
	DefaultNotifierFrom    = "noreply@ooh-marketplace.co.za"
	DefaultNotifierBaseURL = "http://localhost:8080"

	verificationSubject = "OOH Marketplace - Email Verification"
	resetSubject        = "OOH Marketplace - Password Reset Request"
)

// link builds {base}{path}?token={token}.
func link(base, path, token string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultNotifierBaseURL
	}
	return base + path + "?token=" + url.QueryEscape(token)
}

func verificationMessage(cfg Config, to, token string) notify.Message {
	l := link(cfg.NotifierBaseURL, "/user/verify-email", token)
	return notify.Message{
		To:      to,
		From:    cfg.from(),
		Subject: verificationSubject,
		Body:    "Click the link to verify your email address: " + l,
		Kind:    notify.KindEmailVerification,
		Link:    l,
	}
}

func resetMessage(cfg Config, to, token string) notify.Message {
	l := link(cfg.NotifierBaseURL, "/user/reset-password", token)
	return notify.Message{
		To:      to,
		From:    cfg.from(),
		Subject: resetSubject,
		Body:    "Click the link to reset your password: " + l,
		Kind:    notify.KindPasswordReset,
		Link:    l,
	}
}
