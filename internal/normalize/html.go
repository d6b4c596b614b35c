package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText strips markup from an HTML fragment. Line break tags become
// newlines, other tags vanish, entities are decoded and the result is trimmed.
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}
