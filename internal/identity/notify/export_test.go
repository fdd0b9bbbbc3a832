package notify

import (
	"net/smtp"
	"time"
)

// WithSendMail swaps the SMTP transport and clock for tests.
func (n *SMTPNotifier) WithSendMail(fn func(string, smtp.Auth, string, []string, []byte) error, now func() time.Time) *SMTPNotifier {
	n.sendMail = fn
	n.now = now
	return n
}
