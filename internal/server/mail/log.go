package mail

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogMailer renders templates and writes them to the log instead of sending
// them. It is used when no SMTP host is configured.
type LogMailer struct {
	logger   logging.Logger
	renderer *Renderer
}

func NewLogMailer(l logging.Logger, r *Renderer) *LogMailer {
	return &LogMailer{logger: l.With("module", "log_mailer"), renderer: r}
}

func (m *LogMailer) SendTemplate(ctx context.Context, to, subject, templateKey string, data map[string]string) error {
	body, err := m.renderer.Render(templateKey, data)
	if err != nil {
		return err
	}
	m.logger.Info(ctx, "email", "to", to, "subject", subject, "template", templateKey, "body", body)
	return nil
}
