package web

import (
	"bytes"
	"fmt"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// LoadPlanNotes renders the markdown file at path, or the built-in plan
// notes when path is empty.
func LoadPlanNotes(path string) (string, error) {
	if path == "" {
		return RenderMarkdown(defaultPlanNotes), nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read plan notes: %w", err)
	}
	return RenderMarkdown(string(src)), nil
}
