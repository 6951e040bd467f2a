package template

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"courier/internal/common"
	"courier/internal/domain/notification"

	"gopkg.in/yaml.v3"
)

var _ notification.TemplateRenderer = (*Engine)(nil)

//go:embed catalog.yaml
var defaultCatalog []byte

// placeholder matches {{identifier}} tokens.
var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template is a message skeleton. Subject is only meaningful for email.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Catalog maps type → language → channel → template.
type Catalog map[notification.NotificationType]map[notification.Language]map[notification.Channel]Template

// Engine renders notification templates from an immutable catalog.
type Engine struct {
	catalog Catalog
}

// NewEngine creates a template engine backed by the embedded catalog.
func NewEngine() (*Engine, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog creates a template engine from YAML catalog data.
func ParseCatalog(data []byte) (*Engine, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	return NewEngineFromCatalog(catalog), nil
}

// NewEngineFromCatalog creates a template engine from an in-memory catalog.
// The catalog is copied so later changes by the caller are not observed.
func NewEngineFromCatalog(catalog Catalog) *Engine {
	cp := make(Catalog, len(catalog))
	for t, langs := range catalog {
		cp[t] = make(map[notification.Language]map[notification.Channel]Template, len(langs))
		for l, channels := range langs {
			cp[t][l] = make(map[notification.Channel]Template, len(channels))
			for c, tpl := range channels {
				cp[t][l][c] = tpl
			}
		}
	}
	return &Engine{catalog: cp}
}

// Lookup returns the raw template for the exact (type, language, channel) triple.
func (e *Engine) Lookup(notifType notification.NotificationType, language notification.Language, channel notification.Channel) (Template, error) {
	tpl, ok := e.catalog[notifType][language][channel]
	if !ok || tpl.Body == "" {
		return Template{}, common.NewTemplateNotFoundError(string(notifType), string(language), string(channel))
	}
	return tpl, nil
}

// Render looks up the template and substitutes variables into subject and body.
// Email is the only channel that carries a subject.
func (e *Engine) Render(notifType notification.NotificationType, language notification.Language, channel notification.Channel, variables map[string]string) (notification.Rendered, error) {
	tpl, err := e.Lookup(notifType, language, channel)
	if err != nil {
		return notification.Rendered{}, err
	}

	out := notification.Rendered{Body: Substitute(tpl.Body, variables)}
	if channel == notification.ChannelEmail && tpl.Subject != "" {
		out.Subject = Substitute(tpl.Subject, variables)
	}
	return out, nil
}

// CheckComplete verifies that every (type, language, channel) combination
// resolves to a template. Call at startup so a gap fails the deployment.
func (e *Engine) CheckComplete() error {
	var missing []string
	for _, t := range notification.Types() {
		for _, l := range notification.Languages() {
			for _, c := range notification.Channels() {
				if _, err := e.Lookup(t, l, c); err != nil {
					missing = append(missing, fmt.Sprintf("%s/%s/%s", t, l, c))
				}
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template catalog incomplete, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Substitute replaces each {{name}} with variables[name]. Unknown names are
// left verbatim so missing variables stay visible in the output.
func Substitute(s string, variables map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-2]
		if v, ok := variables[name]; ok {
			return v
		}
		return token
	})
}
