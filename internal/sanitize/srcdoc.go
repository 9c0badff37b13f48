package sanitize

import (
	"fmt"
	"html"
	"strings"
)

// Document bundles sanitized HTML and CSS ready for iframe preview.
type Document struct {
	HTML string
	CSS  string
}

// SanitizeDocument sanitizes both parts of a preview payload.
func SanitizeDocument(rawHTML, rawCSS string) Document {
	return Document{
		HTML: SanitizeHTML(rawHTML),
		CSS:  SanitizeCSS(rawCSS),
	}
}

// SrcdocWrapper renders the sanitized document as a complete iframe element
// whose srcdoc carries the preview. The sandbox attribute allows scripts but
// not same-origin access, which is the boundary the sanitizer assumes.
func SrcdocWrapper(doc Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	if strings.TrimSpace(doc.CSS) != "" {
		fmt.Fprintf(&b, "<style>%s</style>", doc.CSS)
	}
	b.WriteString("</head><body>")
	b.WriteString(doc.HTML)
	b.WriteString("</body></html>")

	return fmt.Sprintf(`<iframe sandbox="allow-scripts" srcdoc="%s"></iframe>`, html.EscapeString(b.String()))
}
