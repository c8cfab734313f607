package notion

import (
	"html"
	"regexp"
	"strings"
)

// Canvas descriptions arrive as HTML; Notion rich text wants plain text.

var (
	reScript    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reLink      = regexp.MustCompile(`(?i)<link[^>]*>`)
	reListOpen  = regexp.MustCompile(`(?i)</?ul[^>]*>`)
	reListItem  = regexp.MustCompile(`(?i)<li[^>]*>`)
	reListClose = regexp.MustCompile(`(?i)</li>`)
	reParaOpen  = regexp.MustCompile(`(?i)<p[^>]*>`)
	reParaClose = regexp.MustCompile(`(?i)</p>`)
	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
	reSpaces    = regexp.MustCompile(`[ \t]+`)
	reNewlines  = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// htmlToText strips markup down to readable plain text: scripts and link tags
// removed, list items become bullets, paragraphs and breaks become newlines,
// entities decoded, whitespace collapsed.
func htmlToText(content string) string {
	if content == "" {
		return ""
	}

	content = reScript.ReplaceAllString(content, "")
	content = reLink.ReplaceAllString(content, "")

	content = reListOpen.ReplaceAllString(content, "")
	content = reListItem.ReplaceAllString(content, "\n- ")
	content = reListClose.ReplaceAllString(content, "")

	content = reParaOpen.ReplaceAllString(content, "\n\n")
	content = reParaClose.ReplaceAllString(content, "")
	content = reBreak.ReplaceAllString(content, "\n")

	content = reTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	content = reSpaces.ReplaceAllString(content, " ")
	content = reNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
