package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/lukasjarosch/go-docx"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

// Fields supplies placeholder values for a template.
type Fields interface {
	Placeholders() map[string]string
}

// RawFields is a loose key/value set.
type RawFields map[string]string

func (f RawFields) Placeholders() map[string]string {
	return f
}

// PlaceholderMap builds the replacement map for ref. Every key of the
// template's placeholder set is present; keys missing from raw map to "".
// Keys outside the set are passed through.
func PlaceholderMap(ref TemplateRef, raw map[string]string) docx.PlaceholderMap {
	m := make(docx.PlaceholderMap, len(ref.Keys())+len(raw))
	for _, k := range ref.Keys() {
		m[k] = ""
	}
	for k, v := range raw {
		m[k] = v
	}
	return m
}

type Renderer struct {
	source TemplateSource
}

func NewRenderer(source TemplateSource) *Renderer {
	return &Renderer{source: source}
}

// Render fills the template with fields and returns the finished document.
// The template bytes are never modified.
func (r *Renderer) Render(ctx context.Context, ref TemplateRef, fields Fields) (*domain.RenderedDocument, error) {
	logger.EnterMethod("Renderer.Render", "template", string(ref))

	tmpl, err := r.source.Load(ctx, ref)
	if err != nil {
		logger.ExitMethodWithError("Renderer.Render", err, "template", string(ref))
		return nil, err
	}

	var raw map[string]string
	if fields != nil {
		raw = fields.Placeholders()
	}

	data, err := fill(tmpl, PlaceholderMap(ref, raw))
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", domain.ErrRender, ref, err)
		logger.ExitMethodWithError("Renderer.Render", err, "template", string(ref))
		return nil, err
	}

	logger.ExitMethod("Renderer.Render", "template", string(ref), "bytes", len(data))
	return &domain.RenderedDocument{Filename: ref.Filename(), Data: data}, nil
}

func fill(tmpl []byte, values docx.PlaceholderMap) ([]byte, error) {
	// tmpl may be shared through CachedSource.
	doc, err := docx.OpenBytes(append([]byte(nil), tmpl...))
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	if err := doc.ReplaceAll(values); err != nil {
		return nil, fmt.Errorf("failed to replace placeholders: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}
