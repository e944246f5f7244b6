// Package mail renders templated account emails and delivers them either
// through SMTP or, when SMTP is not configured, to the log.
package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Template keys.
const (
	TemplateSignupVerification = "signup_verification"
	TemplateWelcome            = "welcome"
)

// Mailer sends one rendered template to a single recipient.
type Mailer interface {
	SendTemplate(ctx context.Context, to, subject, templateKey string, data map[string]string) error
}

// Job is one email waiting for background delivery.
type Job struct {
	To       string
	Subject  string
	Template string
	Data     map[string]string
}

// Composer builds the account emails with the application name and the
// current year injected into every template context.
type Composer struct {
	appName string
	now     func() time.Time
}

func NewComposer(appName string, now func() time.Time) *Composer {
	return &Composer{appName: appName, now: now}
}

func (c *Composer) context(data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["appName"] = c.appName
	out["year"] = strconv.Itoa(c.now().Year())
	return out
}

// SignupVerification builds the email carrying a signup code.
func (c *Composer) SignupVerification(to, userID, code string) Job {
	return Job{
		To:       to,
		Subject:  "Verify your account",
		Template: TemplateSignupVerification,
		Data:     c.context(map[string]string{"email": to, "userId": userID, "code": code}),
	}
}

// Welcome builds the greeting sent once an account is verified.
func (c *Composer) Welcome(to string) Job {
	return Job{
		To:       to,
		Subject:  fmt.Sprintf("Welcome to %s", c.appName),
		Template: TemplateWelcome,
		Data:     c.context(map[string]string{"email": to}),
	}
}
