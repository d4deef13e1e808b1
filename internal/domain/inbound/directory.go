package inbound

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// DirectoryResolver yields the directory to scan. It is evaluated on every
// scan, so dynamic resolvers may move the Source to a new directory.
type DirectoryResolver interface {
	Resolve() (string, error)
	// Static reports whether Resolve always returns the same path.
	Static() bool
}

// StaticDirectory always resolves to the same absolute path.
type StaticDirectory string

// Resolve implements DirectoryResolver.
func (d StaticDirectory) Resolve() (string, error) {
	if d == "" {
		return "", fmt.Errorf("directory must not be empty")
	}
	return filepath.Abs(string(d))
}

// Static implements DirectoryResolver.
func (d StaticDirectory) Static() bool { return true }

// TemplateDirectory resolves a text/template against the current time and
// environment on each call, e.g. "/data/in/{{ .Now.Format \"2006-01-02\" }}".
type TemplateDirectory struct {
	tmpl *template.Template
	now  func() time.Time
}

// templateData is the value templates are executed against.
type templateData struct {
	Now time.Time
	Env map[string]string
}

// NewTemplateDirectory parses expr. Environment variables ($VAR) are expanded
// after the template is executed.
func NewTemplateDirectory(expr string) (*TemplateDirectory, error) {
	tmpl, err := template.New("directory").Option("missingkey=error").Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse directory template: %w", err)
	}
	return &TemplateDirectory{tmpl: tmpl, now: time.Now}, nil
}

// Resolve implements DirectoryResolver.
func (d *TemplateDirectory) Resolve() (string, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, templateData{Now: d.now(), Env: env}); err != nil {
		return "", fmt.Errorf("evaluate directory template: %w", err)
	}
	dir := strings.TrimSpace(os.ExpandEnv(buf.String()))
	if dir == "" {
		return "", fmt.Errorf("directory template evaluated to an empty path")
	}
	return filepath.Abs(dir)
}

// Static implements DirectoryResolver.
func (d *TemplateDirectory) Static() bool { return false }

// ParseDirectory returns a StaticDirectory unless expr contains template
// actions.
func ParseDirectory(expr string) (DirectoryResolver, error) {
	if strings.Contains(expr, "{{") {
		return NewTemplateDirectory(expr)
	}
	return StaticDirectory(os.ExpandEnv(expr)), nil
}
