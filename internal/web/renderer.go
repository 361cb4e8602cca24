// Package web renders the server-side HTML pages and HTMX fragments.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates
var templatesFS embed.FS

// PartialPrefix selects a shared fragment instead of a full page.
const PartialPrefix = "partials/"

type page struct {
	tmpl   *template.Template
	layout string
}

// Renderer implements gin's render.HTMLRender. Page names are paths below
// templates/pages without the extension ("public/home", "admin/dashboard");
// pages under admin/ use the admin layout, every other page the public one.
type Renderer struct {
	shared *template.Template
	pages  map[string]page
}

// NewRenderer parses every template. funcs extends the default functions
// and must provide the names listed in RequiredFuncs.
func NewRenderer(funcs template.FuncMap) (*Renderer, error) {
	merged := DefaultFuncs()
	for k, v := range funcs {
		merged[k] = v
	}
	for _, name := range RequiredFuncs {
		if _, ok := merged[name]; !ok {
			return nil, fmt.Errorf("template function %q is not defined", name)
		}
	}

	shared, err := template.New("").Funcs(merged).ParseFS(templatesFS,
		"templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layouts: %w", err)
	}

	r := &Renderer{pages: make(map[string]page)}
	err = fs.WalkDir(templatesFS, "templates/pages", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".html" {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/pages/"), ".html")
		t, err := shared.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(templatesFS, p); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		layout := "base"
		if strings.HasPrefix(name, "admin/") {
			layout = "admin"
		}
		r.pages[name] = page{tmpl: t, layout: layout}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Cloning is done; shared may now be executed for partials.
	r.shared = shared
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	if frag, ok := strings.CutPrefix(name, PartialPrefix); ok {
		return render.HTML{Template: r.shared, Name: frag, Data: data}
	}
	p, ok := r.pages[name]
	if !ok {
		return missing(name)
	}
	return render.HTML{Template: p.tmpl, Name: p.layout, Data: data}
}

// Has reports whether a page exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

type missing string

func (m missing) Render(http.ResponseWriter) error {
	return fmt.Errorf("template %q not found", string(m))
}

func (m missing) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
