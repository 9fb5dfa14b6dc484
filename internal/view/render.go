// Package view renders chat shell state as HTML. Rendering is a pure
// function of the transcript and the composer.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"

	"github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PageData feeds the full page template.
type PageData struct {
	Title         string
	SessionID     string
	WebSocketPath string
	Snapshot      chat.Snapshot
}

// Renderer holds the parsed templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("view").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the whole chat page.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	if data.Snapshot.Messages == nil {
		data.Snapshot.Messages = []chat.Message{}
	}
	if err := r.tmpl.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// Messages renders the message list fragment.
func (r *Renderer) Messages(messages []chat.Message) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "messages", messages); err != nil {
		return "", fmt.Errorf("render messages: %w", err)
	}
	return template.HTML(buf.String()), nil
}
