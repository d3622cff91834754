// Package templates embeds and renders the server-side page templates.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed *.html
var FS embed.FS

var pageNames = []string{
	"index.html",
	"task.html",
	"task_form.html",
	"task_delete.html",
}

var pages = loadPages()

func loadPages() map[string]*template.Template {
	loaded := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		loaded[name] = template.Must(
			template.New("layout.html").ParseFS(FS, "layout.html", name),
		)
	}
	return loaded
}

// Render writes the named page to w with the given data.
func Render(w io.Writer, page string, data any) error {
	tmpl, ok := pages[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout.html", data)
}
