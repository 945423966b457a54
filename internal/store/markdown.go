package store

import (
	"bytes"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/yuin/goldmark"
)

// FromHTML converts an HTML fragment to markdown. It never fails: if the
// converter rejects the input, the input is returned unchanged so that a
// malformed feed entry still gets archived in some readable form. Image
// references survive conversion as ![alt](url), which is what the
// localization pass scans for.
func FromHTML(html string) string {
	if html == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return md
}

// ToHTML renders stored markdown back to HTML for display layers. Stateless;
// the inverse-direction concern is deliberately separate from conversion and
// localization.
func ToHTML(markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return markdown
	}
	return buf.String()
}
