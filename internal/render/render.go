// Package render turns conversation turns into HTML for the chat view.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
)

// View is one rendered turn.
type View struct {
	ID    string
	Role  model.Role
	Class string
	HTML  template.HTML
}

// Renderer converts turns to safe HTML. Assistant replies are treated as
// markdown; everything else is plain text.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Turns renders a transcript in order.
func (r *Renderer) Turns(turns []model.Turn) ([]View, error) {
	views := make([]View, 0, len(turns))
	for _, t := range turns {
		v, err := r.Turn(t)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Turn renders a single turn.
func (r *Renderer) Turn(t model.Turn) (View, error) {
	v := View{ID: t.ID, Role: t.Role}

	switch t.Role {
	case model.RoleSystem:
		v.Class = "turn-system"
		v.HTML = template.HTML("<p>System message: " + html.EscapeString(t.Content) + "</p>")
	case model.RoleUser:
		v.Class = "turn-user"
		v.HTML = template.HTML("<p>" + html.EscapeString(t.Content) + "</p>")
	case model.RoleAssistant:
		out, err := r.Markdown(t.Content)
		if err != nil {
			return View{}, err
		}
		v.Class = "turn-assistant"
		v.HTML = out
	default:
		return View{}, fmt.Errorf("cannot render turn with role %q", t.Role)
	}

	return v, nil
}

// Markdown converts markdown to sanitized HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}
