package handlers

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded HTML views.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
