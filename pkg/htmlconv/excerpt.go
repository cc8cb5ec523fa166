package htmlconv

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const DefaultExcerptLength = 160

// Excerpt derives a plain-text excerpt from article HTML, used when the
// author did not supply one. Truncates at a word boundary within max runes.
func Excerpt(html string, max int) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	if max <= 0 {
		max = DefaultExcerptLength
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Fall back to the tag-stripping pipeline on unparseable input.
		return truncateWords(ToMarkdown(html), max)
	}
	doc.Find("script, style").Remove()

	text := strings.Join(strings.FieldsFunc(doc.Text(), unicode.IsSpace), " ")
	return truncateWords(text, max)
}

func truncateWords(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := string(runes[:max])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
