package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	"sync"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates
var embedded embed.FS

// DefaultTemplateFS returns the built-in notification templates.
func DefaultTemplateFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Rendered is the output of one template set.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Templates renders notification templates from a file system. Text and
// subject templates use text/template; HTML templates use html/template.
// Both can call t to localize a catalog key.
type Templates struct {
	fsys fs.FS

	mu   sync.Mutex
	text map[string]*texttemplate.Template
	html map[string]*htmltemplate.Template
}

// NewTemplates loads templates from fsys, or the built-in set when nil.
func NewTemplates(fsys fs.FS) *Templates {
	if fsys == nil {
		fsys = DefaultTemplateFS()
	}
	return &Templates{
		fsys: fsys,
		text: map[string]*texttemplate.Template{},
		html: map[string]*htmltemplate.Template{},
	}
}

// Render executes set in lang. The subject is trimmed; a set without HTML
// renders no HTML.
func (t *Templates) Render(set TemplateSet, lang string, data map[string]any) (Rendered, error) {
	printer := newPrinter(lang)
	var out Rendered
	var err error
	if out.Subject, err = t.renderText(set.Subject, printer, data); err != nil {
		return Rendered{}, err
	}
	out.Subject = strings.TrimSpace(out.Subject)
	if out.Text, err = t.renderText(set.Text, printer, data); err != nil {
		return Rendered{}, err
	}
	if set.HTML != "" {
		if out.HTML, err = t.renderHTML(set.HTML, printer, data); err != nil {
			return Rendered{}, err
		}
	}
	return out, nil
}

func (t *Templates) renderText(name string, printer localizer, data map[string]any) (string, error) {
	tmpl, err := t.textTemplate(name)
	if err != nil {
		return "", err
	}
	clone, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("clone template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := clone.Funcs(texttemplate.FuncMap{"t": printer.translate}).Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (t *Templates) renderHTML(name string, printer localizer, data map[string]any) (string, error) {
	tmpl, err := t.htmlTemplate(name)
	if err != nil {
		return "", err
	}
	clone, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("clone template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := clone.Funcs(htmltemplate.FuncMap{"t": printer.translate}).Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (t *Templates) textTemplate(name string) (*texttemplate.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tmpl, ok := t.text[name]; ok {
		return tmpl, nil
	}
	src, err := fs.ReadFile(t.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	tmpl, err := texttemplate.New(name).Funcs(texttemplate.FuncMap{"t": fallbackPrinter.translate}).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	t.text[name] = tmpl
	return tmpl, nil
}

func (t *Templates) htmlTemplate(name string) (*htmltemplate.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tmpl, ok := t.html[name]; ok {
		return tmpl, nil
	}
	src, err := fs.ReadFile(t.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	tmpl, err := htmltemplate.New(name).Funcs(htmltemplate.FuncMap{"t": fallbackPrinter.translate}).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	t.html[name] = tmpl
	return tmpl, nil
}

// supportedLanguages are the languages with a message catalog. The first
// is the fallback.
var supportedLanguages = []language.Tag{language.English, language.BrazilianPortuguese}

var languageMatcher = language.NewMatcher(supportedLanguages)

// localizer looks up catalog keys for one supported language.
type localizer struct {
	printer *message.Printer
}

var fallbackPrinter = localizer{printer: message.NewPrinter(language.English)}

// MatchLanguage returns the supported language closest to lang.
func MatchLanguage(lang string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return supportedLanguages[0]
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return supportedLanguages[0]
	}
	return supportedLanguages[index]
}

func newPrinter(lang string) localizer {
	return localizer{printer: message.NewPrinter(MatchLanguage(lang))}
}

func (l localizer) translate(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}
