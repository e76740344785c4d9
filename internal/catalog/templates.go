package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/aaronzipp/retroboard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default_templates.yaml
var defaultTemplatesYAML []byte

// Templates is a set of board templates keyed by name
type Templates struct {
	defaultName string
	byName      map[string]models.RoomConfig
}

type templatesFile struct {
	Default   string              `yaml:"default"`
	Templates []models.RoomConfig `yaml:"templates"`
}

// DefaultTemplates returns the built-in templates
func DefaultTemplates() *Templates {
	t, err := ParseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in templates: %v", err))
	}
	return t
}

// LoadTemplates reads templates from a YAML file. An empty path yields the
// built-in templates.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	t, err := ParseTemplates(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// ParseTemplates decodes a templates document
func ParseTemplates(data []byte) (*Templates, error) {
	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("no templates defined")
	}

	t := &Templates{byName: make(map[string]models.RoomConfig, len(f.Templates))}
	for i, tmpl := range f.Templates {
		name := strings.TrimSpace(tmpl.Template)
		if name == "" {
			return nil, fmt.Errorf("template %d has no name", i)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("duplicate template %q", name)
		}
		if len(tmpl.Stages) == 0 {
			return nil, fmt.Errorf("template %q has no stages", name)
		}
		tmpl.Template = name
		t.byName[name] = tmpl
	}

	t.defaultName = f.Default
	if t.defaultName == "" {
		t.defaultName = f.Templates[0].Template
	}
	if _, ok := t.byName[t.defaultName]; !ok {
		return nil, fmt.Errorf("default template %q is not defined", t.defaultName)
	}
	return t, nil
}

// DefaultName returns the name of the fallback template
func (t *Templates) DefaultName() string { return t.defaultName }

// Names lists the template names
func (t *Templates) Names() []string {
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	return out
}

// SetDefaultVotingLimit fills in limit for templates that set none
func (t *Templates) SetDefaultVotingLimit(limit int) {
	if limit <= 0 {
		return
	}
	for name, tmpl := range t.byName {
		if tmpl.VotingLimit <= 0 {
			tmpl.VotingLimit = limit
			t.byName[name] = tmpl
		}
	}
}

// Config builds a room config for sessionID from the named template, or the
// default template when name is unknown
func (t *Templates) Config(sessionID, name string) models.RoomConfig {
	tmpl, ok := t.byName[name]
	if !ok {
		tmpl = t.byName[t.defaultName]
	}
	cfg := tmpl
	cfg.SessionID = sessionID
	cfg.Columns = append([]models.Column(nil), tmpl.Columns...)
	cfg.Stages = append([]models.Stage(nil), tmpl.Stages...)
	cfg.IcebreakerQuestions = append([]string(nil), tmpl.IcebreakerQuestions...)
	return cfg
}
