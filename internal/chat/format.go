package chat

import (
	"html/template"
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// FormatHTML converts the Telegram markdown subset used by the bot to HTML:
// **bold**, *italic* and line breaks. The text is escaped first, so only the
// generated tags reach the page.
func FormatHTML(text string) template.HTML {
	s := template.HTMLEscapeString(text)
	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicPattern.ReplaceAllString(s, "<em>$1</em>")
	s = strings.ReplaceAll(s, "\n", "<br>")
	return template.HTML(s)
}

// PlainHTML escapes text and keeps its line breaks.
func PlainHTML(text string) template.HTML {
	s := template.HTMLEscapeString(text)
	return template.HTML(strings.ReplaceAll(s, "\n", "<br>"))
}
