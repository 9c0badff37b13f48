// Package sanitize reduces XSS risk in untrusted HTML/CSS destined for the
// preview iframe. It is a defense-in-depth layer on top of the iframe sandbox
// (allow-scripts only, no allow-same-origin), not a parser-based sanitizer:
// a fixed ordered set of regex removals is applied repeatedly until the
// output stabilizes, which defends against nested bypass patterns such as a
// tag embedded inside what looks like a removed tag.
package sanitize

import "regexp"

// maxPasses bounds the fixed-point iteration. Ten passes is far beyond what
// any practical nesting depth needs while keeping pathological inputs cheap.
const maxPasses = 10

var htmlRemovals = []*regexp.Regexp{
	// Script tags and their content, then any stray open/close tags.
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script[^>]*>`),
	regexp.MustCompile(`(?i)<script\b[^>]*>`),
	regexp.MustCompile(`(?i)</script[^>]*>`),

	// Style tags and their content.
	regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style[^>]*>`),
	regexp.MustCompile(`(?i)<style\b[^>]*>`),
	regexp.MustCompile(`(?i)</style[^>]*>`),

	// Event handler attributes in any quoting style.
	regexp.MustCompile(`(?i)\son\w+\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*'[^']*'`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*[^\s>]+`),

	// Dangerous protocol values.
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),

	// Embedding and form vectors.
	regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe[^>]*>`),
	regexp.MustCompile(`(?i)</?iframe\b[^>]*>`),
	regexp.MustCompile(`(?is)<object\b[^>]*>.*?</object[^>]*>`),
	regexp.MustCompile(`(?i)</?object\b[^>]*>`),
	regexp.MustCompile(`(?is)<embed\b[^>]*>.*?</embed[^>]*>`),
	regexp.MustCompile(`(?i)</?embed\b[^>]*>`),
	regexp.MustCompile(`(?is)<applet\b[^>]*>.*?</applet[^>]*>`),
	regexp.MustCompile(`(?i)</?applet\b[^>]*>`),
	regexp.MustCompile(`(?is)<form\b[^>]*>.*?</form[^>]*>`),
	regexp.MustCompile(`(?i)</?form\b[^>]*>`),

	// Inline style attributes carrying script-capable CSS.
	regexp.MustCompile(`(?i)\sstyle\s*=\s*"[^"]*(?:expression|behavior|-moz-binding|@import)[^"]*"`),
	regexp.MustCompile(`(?i)\sstyle\s*=\s*'[^']*(?:expression|behavior|-moz-binding|@import)[^']*'`),
}

var cssRemovals = []*regexp.Regexp{
	regexp.MustCompile(`(?is)expression\s*\([^)]*\)`),
	regexp.MustCompile(`(?i)@import\b[^;]*;?`),
	regexp.MustCompile(`(?i)-moz-binding\s*:[^;}]*;?`),
	regexp.MustCompile(`(?i)behavior\s*:[^;}]*;?`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	// CSS has no business containing markup.
	regexp.MustCompile(`(?s)<[^>]*>`),
}

// SanitizeHTML strips script, style, event-handler, protocol, and embedding
// vectors from the input. The result is idempotent: sanitizing sanitized
// output returns it unchanged.
func SanitizeHTML(input string) string {
	return scrub(input, htmlRemovals)
}

// SanitizeCSS strips script-capable CSS constructs and embedded markup.
func SanitizeCSS(input string) string {
	return scrub(input, cssRemovals)
}

func scrub(input string, removals []*regexp.Regexp) string {
	out := input
	for pass := 0; pass < maxPasses; pass++ {
		before := out
		for _, re := range removals {
			out = re.ReplaceAllString(out, "")
		}
		if out == before {
			break
		}
	}
	return out
}
