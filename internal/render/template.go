package render

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/sdd_notification.tmpl
var defaultTemplateSource string

// DefaultTemplateName names the embedded transform.
const DefaultTemplateName = "sdd_notification"

// Template is a parsed transform from a document tree to presentation XML.
// Data is only reachable through the slot and optional functions, so a
// missing field fails the transform instead of rendering blank.
type Template struct {
	Name string
	tmpl *template.Template
}

// ParseTemplate compiles source. A malformed source returns a *RenderError.
func ParseTemplate(name, source string) (*Template, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &RenderError{Stage: stageTemplate, Reason: fmt.Sprintf("template %q is empty", name)}
	}

	// The funcs are rebound per execution; these stubs only satisfy the parser.
	tmpl, err := template.New(name).Funcs(slotFuncs(nil)).Parse(source)
	if err != nil {
		return nil, &RenderError{Stage: stageTemplate, Reason: fmt.Sprintf("template %q is malformed", name), Err: err}
	}
	return &Template{Name: name, tmpl: tmpl}, nil
}

// LoadTemplate reads and compiles the transform at path.
func LoadTemplate(path string) (*Template, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &RenderError{Stage: stageTemplate, Reason: "failed to read template", Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseTemplate(name, string(source))
}

// DefaultTemplate returns the embedded SDD notification transform.
func DefaultTemplate() *Template {
	t, err := ParseTemplate(DefaultTemplateName, defaultTemplateSource)
	if err != nil {
		panic(err)
	}
	return t
}

type templateData struct {
	RequestType string
	GeneratedAt string
	Attributes  []Field
}

// Transform applies the template to doc and parses the presentation it emits.
func (t *Template) Transform(doc *Document) (*Presentation, error) {
	tmpl, err := t.tmpl.Clone()
	if err != nil {
		return nil, &RenderError{Stage: stageTransform, Reason: "failed to clone template", Err: err}
	}
	tmpl.Funcs(slotFuncs(doc))

	var buf bytes.Buffer
	data := templateData{
		RequestType: doc.RequestType,
		GeneratedAt: doc.GeneratedAt,
		Attributes:  doc.Attributes,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		var missing *MissingSlotError
		if errors.As(err, &missing) {
			return nil, &RenderError{Stage: stageTransform, Reason: missing.Error(), Err: err}
		}
		return nil, &RenderError{Stage: stageTransform, Reason: "template execution failed", Err: err}
	}

	return ParsePresentation(buf.Bytes())
}

func slotFuncs(doc *Document) template.FuncMap {
	lookup := func(name string) (string, bool) {
		if doc == nil {
			return "", false
		}
		return doc.Slot(name)
	}
	return template.FuncMap{
		"slot": func(name string) (string, error) {
			v, ok := lookup(name)
			if !ok {
				return "", &MissingSlotError{Slot: name}
			}
			return escapeXML(v), nil
		},
		"optional": func(name string) string {
			v, _ := lookup(name)
			return escapeXML(v)
		},
		"xml": escapeXML,
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
