// Package htmlconv converts authored HTML into the plainer markup dialects
// accepted by publishing platforms. The conversion is lossy and
// one-directional; it is never expected to round-trip back to HTML.
package htmlconv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reStyleScript = regexp.MustCompile(`(?is)<(style|script)\b[^>]*>.*?</(?:style|script)\s*>`)
	reHeading     = regexp.MustCompile(`(?is)<h([1-6])\b[^>]*>(.*?)</h[1-6]\s*>`)
	reBold        = regexp.MustCompile(`(?is)<(?:strong|b)\b[^>]*>(.*?)</(?:strong|b)\s*>`)
	reItalic      = regexp.MustCompile(`(?is)<(?:em|i)\b[^>]*>(.*?)</(?:em|i)\s*>`)
	reAnchor      = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a\s*>`)
	reImage       = regexp.MustCompile(`(?is)<img\b[^>]*/?>`)
	reListItem    = regexp.MustCompile(`(?is)<li\b[^>]*>(.*?)</li\s*>`)
	reCodeBlock   = regexp.MustCompile(`(?is)<pre\b[^>]*>\s*<code\b[^>]*>(.*?)</code>\s*</pre\s*>`)
	reBlockquote  = regexp.MustCompile(`(?is)<blockquote\b[^>]*>(.*?)</blockquote\s*>`)
	reParaBreak   = regexp.MustCompile(`(?i)</(?:p|div)\s*>|<br\s*/?>`)
	reAnyTag      = regexp.MustCompile(`(?s)<[^>]+>`)
	reManyNewline = regexp.MustCompile(`\n{3,}`)
	reAttr        = regexp.MustCompile(`(?i)(\w+)\s*=\s*"([^"]*)"`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
		"&amp;", "&",
	)
)

// ToMarkdown applies the fixed substitution pipeline turning HTML into a
// markdown dialect. Pure and deterministic: same input, same output.
func ToMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	out := reStyleScript.ReplaceAllString(html, "")

	out = reHeading.ReplaceAllStringFunc(out, func(m string) string {
		parts := reHeading.FindStringSubmatch(m)
		level, _ := strconv.Atoi(parts[1])
		return "\n\n" + strings.Repeat("#", level) + " " + strings.TrimSpace(parts[2]) + "\n\n"
	})

	out = reBold.ReplaceAllString(out, "**$1**")
	out = reItalic.ReplaceAllString(out, "*$1*")

	out = reAnchor.ReplaceAllStringFunc(out, func(m string) string {
		parts := reAnchor.FindStringSubmatch(m)
		href := attrValue(m, "href")
		text := strings.TrimSpace(parts[1])
		if href == "" {
			return text
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	})

	out = reImage.ReplaceAllStringFunc(out, func(m string) string {
		src := attrValue(m, "src")
		if src == "" {
			return ""
		}
		return fmt.Sprintf("![%s](%s)", attrValue(m, "alt"), src)
	})

	out = reListItem.ReplaceAllString(out, "\n- $1")

	out = reCodeBlock.ReplaceAllStringFunc(out, func(m string) string {
		parts := reCodeBlock.FindStringSubmatch(m)
		code := strings.Trim(parts[1], "\n")
		return "\n\n```\n" + code + "\n```\n\n"
	})

	out = reBlockquote.ReplaceAllStringFunc(out, func(m string) string {
		parts := reBlockquote.FindStringSubmatch(m)
		lines := strings.Split(strings.TrimSpace(parts[1]), "\n")
		for i, line := range lines {
			lines[i] = "> " + strings.TrimSpace(line)
		}
		return "\n\n" + strings.Join(lines, "\n") + "\n\n"
	})

	out = reParaBreak.ReplaceAllString(out, "\n\n")
	out = reAnyTag.ReplaceAllString(out, "")
	out = entityReplacer.Replace(out)
	out = reManyNewline.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(out)
}

// attrValue pulls a named attribute out of a raw tag string, tolerating any
// attribute order.
func attrValue(tag, name string) string {
	for _, m := range reAttr.FindAllStringSubmatch(tag, -1) {
		if strings.EqualFold(m[1], name) {
			return m[2]
		}
	}
	return ""
}
