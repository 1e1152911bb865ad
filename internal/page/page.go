// Package page renders the single page application from the embedded assets.
package page

import (
	"bytes"
	"fmt"
	"io/fs"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// Asset names inside the asset filesystem.
const (
	TemplateFile = "index.html.tpl"
	StyleFile    = "style.css"
	ScriptFile   = "script.js"
	FaviconFile  = "favicon.svg"
)

// Data is passed to the page template.
type Data struct {
	Title string
	CSS   string
	JS    string
}

// Page is the rendered application.
type Page struct {
	Index   []byte
	Favicon []byte
}

// Build renders the template with inlined, minified CSS and JS.
// With minified false the assets are inlined verbatim.
func Build(assets fs.FS, title string, minified bool) (*Page, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	load := func(name, mediatype string) (string, error) {
		raw, err := fs.ReadFile(assets, name)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		if !minified {
			return string(raw), nil
		}

		out, err := m.String(mediatype, string(raw))
		if err != nil {
			return "", fmt.Errorf("minify %s: %w", name, err)
		}

		return out, nil
	}

	cssMin, err := load(StyleFile, "text/css")
	if err != nil {
		return nil, err
	}
	jsMin, err := load(ScriptFile, "text/javascript")
	if err != nil {
		return nil, err
	}
	svgMin, err := load(FaviconFile, "image/svg+xml")
	if err != nil {
		return nil, err
	}

	htmlRaw, err := fs.ReadFile(assets, TemplateFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TemplateFile, err)
	}

	tmpl, err := template.New("index").Parse(string(htmlRaw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Data{Title: title, CSS: cssMin, JS: jsMin}); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	index := buf.String()
	if minified {
		if index, err = m.String("text/html", index); err != nil {
			return nil, fmt.Errorf("minify html: %w", err)
		}
	}

	return &Page{Index: []byte(index), Favicon: []byte(svgMin)}, nil
}
