package mail

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer executes the embedded templates. Missing keys render as errors
// so a typo in a template does not ship a half-empty email.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("mail").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render executes the template named key with data.
func (r *Renderer) Render(key string, data map[string]string) (string, error) {
	t := r.tmpl.Lookup(key + ".tmpl")
	if t == nil {
		return "", fmt.Errorf("unknown mail template %q", key)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return buf.String(), nil
}
