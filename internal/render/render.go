// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the embedded HTML templates and renders dashboard
// views.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/i18n"
)

// blankLinesRegex matches two or more consecutive newlines (with optional whitespace between).
var blankLinesRegex = regexp.MustCompile(`(\r?\n\s*){2,}`)

// DefaultBackground is used when no background image is configured.
const DefaultBackground = "background-color: #0C0F16;"

// Report describes the embedded BI report frame.
type Report struct {
	URL    string
	Title  string
	Width  string
	Height int
	// Scrolling is the frame's scrolling attribute; empty means "no".
	Scrolling string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS fs.FS
	// ContentFS holds Markdown page bodies (<name>.md).
	ContentFS fs.FS
	Catalog   *i18n.Catalog
	Report    Report
	// BackgroundURI is an optional data URI for the page background.
	BackgroundURI string
}

// Renderer renders parsed templates. It is safe for concurrent use.
type Renderer struct {
	templates  map[string]*template.Template
	content    map[string]template.HTML
	catalog    *i18n.Catalog
	report     Report
	background template.CSS
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Lang        string
	Title       string
	Session     dashboard.Session
	Pages       []dashboard.Page
	Notice      *dashboard.Notice
	Content     template.HTML
	Report      Report
	Background  template.CSS
	Data        any
	CurrentYear int
}

// layouts maps a template directory to the layout its pages are parsed with.
var layouts = map[string]string{
	"auth":  "layouts/auth.html",
	"pages": "layouts/app.html",
}

// New parses all templates and converts the Markdown content.
func New(cfg Config) (*Renderer, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("render: catalog is required")
	}

	r := &Renderer{
		templates:  make(map[string]*template.Template),
		content:    make(map[string]template.HTML),
		catalog:    cfg.Catalog,
		report:     cfg.Report,
		background: template.CSS(DefaultBackground),
	}
	if cfg.BackgroundURI != "" {
		r.background = backgroundCSS(cfg.BackgroundURI)
	}
	if r.report.Scrolling == "" {
		r.report.Scrolling = "no"
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}
	if cfg.ContentFS != nil {
		if err := r.loadContent(cfg.ContentFS); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for dir, layout := range layouts {
		pages, err := templateFiles(templatesFS, dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", dir, err)
		}
		for _, tmplPath := range pages {
			name := dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			// Parse in order: base layout, section layout, partials, page template
			files := []string{"layouts/base.html", layout}
			files = append(files, partials...)
			files = append(files, tmplPath)

			tmpl, err := template.New("").Funcs(r.templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}
	return nil
}

// templateFiles returns all .html files in a directory.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func (r *Renderer) loadContent(contentFS fs.FS) error {
	entries, err := fs.ReadDir(contentFS, ".")
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		src, err := fs.ReadFile(contentFS, entry.Name())
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		html, err := Markdown(src)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", entry.Name(), err)
		}
		r.content[strings.TrimSuffix(entry.Name(), ".md")] = html
	}
	return nil
}

// Has reports whether a template with the given name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Content returns the rendered Markdown body with the given name.
func (r *Renderer) Content(name string) template.HTML {
	return r.content[name]
}

// Catalog returns the message catalog used by the templates.
func (r *Renderer) Catalog() *i18n.Catalog {
	return r.catalog
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return r.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template into a buffer and writes it with the
// given status. Nothing is written if execution fails.
func (r *Renderer) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data.Lang == "" {
		data.Lang = i18n.DefaultLanguage
	}
	data.Report = r.report
	data.Background = r.background
	data.CurrentYear = time.Now().Year()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(blankLinesRegex.ReplaceAll(buf.Bytes(), []byte("\n")))
	return err
}

// backgroundCSS builds the body background declaration for a data URI.
// Only base64 image data URIs are accepted.
func backgroundCSS(uri string) template.CSS {
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(uri, prefix) || strings.ContainsAny(uri, `"'()\ `+"\n") {
		return template.CSS(DefaultBackground)
	}
	return template.CSS(`background-image: url("` + uri + `"); background-size: cover; background-position: center; background-attachment: fixed;`)
}
