package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/dajohi/goemail"
)

type smtpSender interface {
	Send(msg *goemail.Message) error
}

// SMTPMailer delivers rendered templates over SMTPS.
type SMTPMailer struct {
	smtp     smtpSender
	renderer *Renderer
	from     string
	fromName string
}

// NewSMTPMailer connects the mailer to host ("host:port") with the given
// credentials. Mail is sent from the from address, optionally with a
// display name.
func NewSMTPMailer(host, user, password, from, fromName string, r *Renderer) (*SMTPMailer, error) {
	u := &url.URL{Scheme: "smtps", Host: host}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}

	serverName, _, err := net.SplitHostPort(host)
	if err != nil {
		serverName = host
	}

	s, err := goemail.NewSMTP(u.String(), &tls.Config{ServerName: serverName})
	if err != nil {
		return nil, fmt.Errorf("smtp setup: %w", err)
	}

	return &SMTPMailer{smtp: s, renderer: r, from: from, fromName: fromName}, nil
}

func (m *SMTPMailer) SendTemplate(ctx context.Context, to, subject, templateKey string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.renderer.Render(templateKey, data)
	if err != nil {
		return err
	}

	msg := goemail.NewMessage(m.from, subject, body)
	if m.fromName != "" {
		msg.SetName(m.fromName)
	}
	// Recipients go in BCC so addresses never appear in headers.
	msg.AddBCC(to)

	if err := m.smtp.Send(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
