package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	tmpl := DefaultTemplates()

	assert.Equal(t, "start-stop-continue", tmpl.DefaultName())
	assert.ElementsMatch(t, []string{"start-stop-continue", "mad-sad-glad", "four-ls"}, tmpl.Names())

	cfg := tmpl.Config("r1", "mad-sad-glad")
	assert.Equal(t, "r1", cfg.SessionID)
	assert.Equal(t, "mad-sad-glad", cfg.Template)
	assert.Equal(t, 3, cfg.VotingLimit)
	assert.Len(t, cfg.Columns, 3)
	assert.Len(t, cfg.Stages, 6, "stages are shared through a YAML anchor")
	assert.NotEmpty(t, cfg.IcebreakerQuestions)
}

func TestTemplates_ConfigFallsBackToDefault(t *testing.T) {
	tmpl := DefaultTemplates()

	cfg := tmpl.Config("r1", "unknown")
	assert.Equal(t, "start-stop-continue", cfg.Template)

	// Configs do not share backing arrays with the template.
	cfg.Stages[0].Enabled = false
	assert.True(t, tmpl.Config("r2", "").Stages[0].Enabled)
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `templates: []`},
		{"unnamed", "templates:\n  - title: x\n    stages: [{id: a, enabled: true}]"},
		{"no stages", "templates:\n  - name: x"},
		{"duplicate", "templates:\n  - name: x\n    stages: [{id: a}]\n  - name: x\n    stages: [{id: a}]"},
		{"bad default", "default: y\ntemplates:\n  - name: x\n    stages: [{id: a}]"},
		{"not yaml", "templates: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplates_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := `
templates:
  - name: quick
    title: Quick retro
    columns: [{id: c1, title: Went well}]
    stages:
      - {id: brainstorm, name: Brainstorm, duration: 5, enabled: true}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tmpl, err := LoadTemplates(path)
	require.NoError(t, err)
	tmpl.SetDefaultVotingLimit(7)

	cfg := tmpl.Config("r1", "")
	assert.Equal(t, "quick", cfg.Template)
	assert.Equal(t, 7, cfg.VotingLimit)
	assert.Equal(t, []models.Column{{ID: "c1", Title: "Went well"}}, cfg.Columns)

	_, err = LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTemplateSource(t *testing.T) {
	src := TemplateSource{Templates: DefaultTemplates()}

	cfg, err := src.Lookup(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", cfg.SessionID)
	assert.Equal(t, "start-stop-continue", cfg.Template)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/retros/r1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "r1",
				"title": "Sprint 12",
				"template": "mad-sad-glad",
				"stages": [{"id":"brainstorm","name":"Brainstorm","duration":10,"enabled":true}],
				"votingLimit": 4
			}`))
		case "/retros/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/retros/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	src := NewHTTPSource(srv.URL+"/", DefaultTemplates(), time.Second)

	cfg, err := src.Lookup(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", cfg.SessionID)
	assert.Equal(t, "Sprint 12", cfg.Title)
	assert.Equal(t, "mad-sad-glad", cfg.Template)
	assert.Equal(t, 4, cfg.VotingLimit)
	require.Len(t, cfg.Stages, 1)
	assert.Equal(t, models.StageBrainstorm, cfg.Stages[0].ID)
	assert.Equal(t, "mad", cfg.Columns[0].ID, "columns come from the named template")

	_, err = src.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = src.Lookup(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	_, err = src.Lookup(context.Background(), "garbage")
	assert.Error(t, err)
}
