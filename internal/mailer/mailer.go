package mailer

import (
	"fmt"

	"marketplace/internal/models"

	"gopkg.in/gomail.v2"
)

// Dialer is the part of *gomail.Dialer the mailer needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	dialer Dialer
}

func New(host string, port int, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}

	return &Mailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func NewWithDialer(from string, d Dialer) *Mailer {
	return &Mailer{from: from, dialer: d}
}

// Send delivers one queued message. Bodies are plain text.
func (m *Mailer) Send(msg models.Message) error {
	const op = "mailer.Send"

	if msg.Email == "" {
		return fmt.Errorf("%s: empty recipient", op)
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
