// Package assets embeds the page sources rendered by internal/page.
package assets

import "embed"

// FS holds the page template, style, script and favicon.
//
//go:embed index.html.tpl style.css script.js favicon.svg
var FS embed.FS
