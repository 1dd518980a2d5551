// Package mailer delivers confirmation and password-reset emails in the
// background. Producers enqueue a Message and never wait for delivery.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

type Kind string

const (
	KindConfirmEmail  Kind = "confirm_email"
	KindResetPassword Kind = "reset_password"
)

type Message struct {
	Kind     Kind   `json:"kind"`
	To       string `json:"to"`
	Username string `json:"username"`
	BaseURL  string `json:"base_url"`
	Token    string `json:"token"`
}

// Queue accepts messages for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Sender performs the actual delivery of one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Email struct {
	To      string
	Subject string
	Body    string
}

// Compose renders the plain-text email for msg.
func Compose(msg Message) (Email, error) {
	base := strings.TrimRight(msg.BaseURL, "/") + "/"

	switch msg.Kind {
	case KindConfirmEmail:
		return Email{
			To:      msg.To,
			Subject: "Confirm your email",
			Body: fmt.Sprintf("Hello %s,\n\nplease confirm your email address by opening the link below:\n\n%sapi/auth/confirmed_email/%s\n",
				msg.Username, base, msg.Token),
		}, nil
	case KindResetPassword:
		return Email{
			To:      msg.To,
			Subject: "Reset your password",
			Body: fmt.Sprintf("Hello %s,\n\nuse the link below to set a new password:\n\n%sapi/auth/form_reset_password/%s\n\nIf you did not ask for this, ignore this email.\n",
				msg.Username, base, msg.Token),
		}, nil
	default:
		return Email{}, fmt.Errorf("unknown mail kind %q", msg.Kind)
	}
}
