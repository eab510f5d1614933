// Package web embeds the dashboard templates.
package web

import "embed"

// Templates holds the HTML templates served by the API.
//
//go:embed templates/*.html
var Templates embed.FS
