package htmlconv

import (
	"strings"
	"testing"
)

func TestToMarkdownHeadings(t *testing.T) {
	got := ToMarkdown(`<h1>Title</h1><h3>Sub</h3>`)
	want := "# Title\n\n### Sub"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToMarkdownInlineFormatting(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bold", `<strong>hi</strong>`, "**hi**"},
		{"bold b tag", `<b>hi</b>`, "**hi**"},
		{"italic", `<em>hi</em>`, "*hi*"},
		{"italic i tag", `<i>hi</i>`, "*hi*"},
		{"link", `<a href="https://example.com">here</a>`, "[here](https://example.com)"},
		{"image", `<img src="/a.png" alt="pic">`, "![pic](/a.png)"},
		{"image attrs reversed", `<img alt="pic" src="/a.png">`, "![pic](/a.png)"},
		{"entities", `a &amp;&lt;&gt;&quot;&#39;&nbsp;b`, `a &<>"' b`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToMarkdown(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestToMarkdownStripsStyleAndScript(t *testing.T) {
	in := `<style>.x{color:red}</style><p>keep</p><script>alert(1)</script>`
	got := ToMarkdown(in)
	if got != "keep" {
		t.Fatalf("got %q", got)
	}
}

func TestToMarkdownLists(t *testing.T) {
	got := ToMarkdown(`<ul><li>one</li><li>two</li></ul>`)
	if got != "- one\n- two" {
		t.Fatalf("got %q", got)
	}
}

func TestToMarkdownCodeBlock(t *testing.T) {
	got := ToMarkdown("<pre><code>x := 1\ny := 2</code></pre>")
	want := "```\nx := 1\ny := 2\n```"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToMarkdownBlockquote(t *testing.T) {
	got := ToMarkdown(`<blockquote>wise words</blockquote>`)
	if got != "> wise words" {
		t.Fatalf("got %q", got)
	}
}

func TestToMarkdownCollapsesNewlines(t *testing.T) {
	got := ToMarkdown("<p>a</p><p></p><p></p><p>b</p>")
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("three consecutive newlines survived: %q", got)
	}
}

func TestToMarkdownPure(t *testing.T) {
	in := `<h2>Hi</h2><p>Some <strong>bold</strong> text with a <a href="/x">link</a>.</p>`
	first := ToMarkdown(in)
	for i := 0; i < 5; i++ {
		if got := ToMarkdown(in); got != first {
			t.Fatalf("conversion is not deterministic: %q vs %q", got, first)
		}
	}
}

func TestToMarkdownEmpty(t *testing.T) {
	if got := ToMarkdown(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
	if got := ToMarkdown("   \n "); got != "" {
		t.Fatalf("expected empty output for whitespace, got %q", got)
	}
}

func TestExcerptStripsMarkupAndTruncates(t *testing.T) {
	html := `<p>` + strings.Repeat("word ", 100) + `</p>`
	got := Excerpt(html, 50)
	if len([]rune(got)) > 51 { // truncated text plus ellipsis
		t.Fatalf("excerpt too long: %d runes", len([]rune(got)))
	}
	if strings.Contains(got, "<") {
		t.Fatalf("markup survived: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestExcerptShortTextUntouched(t *testing.T) {
	if got := Excerpt("<p>short note</p>", 160); got != "short note" {
		t.Fatalf("got %q", got)
	}
}

func TestExcerptEmpty(t *testing.T) {
	if got := Excerpt("", 160); got != "" {
		t.Fatalf("got %q", got)
	}
}
