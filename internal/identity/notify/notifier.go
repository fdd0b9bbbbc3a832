package notify

import (
	"context"
	"errors"
)

// Kind tags what a message is for.
type Kind string

const (
	KindEmailVerification Kind = "email_verification"
	KindPasswordReset     Kind = "password_reset"
)

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Kind    Kind   `json:"kind"`
	Link    string `json:"link,omitempty"`
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if m.To == "" {
		return errors.New("notify: message has no recipient")
	}
	if m.Subject == "" && m.Body == "" {
		return errors.New("notify: message is empty")
	}
	return nil
}

// Notifier delivers a message. Implementations must be safe for concurrent
// use by the dispatcher's workers.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
