package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText converts an HTML fragment to whitespace-normalised plain text.
// Script and style elements are dropped. Input that is not HTML comes back
// with its whitespace collapsed.
func CleanText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style, noscript").Remove()

	// Keep block boundaries from gluing words together
	doc.Find("p, div, br, li, h1, h2, h3, h4, h5, h6, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
