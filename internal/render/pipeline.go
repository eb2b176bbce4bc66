package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/veleda/skald/internal/parser"
)

var (
	embedRe      = regexp.MustCompile(`!\[\[([^\]|]+)(?:\|([^\]]*))?\]\]`)
	wikilinkRe   = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]*))?\]\]`)
	inlineCodeRe = regexp.MustCompile("`[^`\n]*`")
	literalRe    = regexp.MustCompile("\x00L([0-9]+)\x00")
)

func literalToken(n int) string {
	return "\x00L" + strconv.Itoa(n) + "\x00"
}

// protectLiterals replaces fenced code blocks and inline code spans
// with opaque tokens, returning the token-bearing text and the original
// regions. Link-like substrings inside code must never be expanded.
func protectLiterals(text string) (string, []string) {
	var regions []string
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			marker := trimmed[:3]
			j := i + 1
			for j < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[j]), marker) {
				j++
			}
			end := j
			if end >= len(lines) {
				// Unterminated fence: protect through end of input.
				end = len(lines) - 1
			}
			regions = append(regions, strings.Join(lines[i:end+1], "\n"))
			out = append(out, literalToken(len(regions)-1))
			i = end
			continue
		}
		out = append(out, inlineCodeRe.ReplaceAllStringFunc(lines[i], func(span string) string {
			regions = append(regions, span)
			return literalToken(len(regions) - 1)
		}))
	}
	return strings.Join(out, "\n"), regions
}

// restoreLiterals puts the protected regions back verbatim.
func restoreLiterals(text string, regions []string) string {
	if len(regions) == 0 {
		return text
	}
	return literalRe.ReplaceAllStringFunc(text, func(tok string) string {
		n, err := strconv.Atoi(tok[2 : len(tok)-1])
		if err != nil || n < 0 || n >= len(regions) {
			return tok
		}
		return regions[n]
	})
}

// expandEmbeds rewrites every ![[filename]] / ![[filename|caption]]
// into its media element. Runs before wikilink expansion so an embed's
// filename is never misread as a note target.
func (r *Renderer) expandEmbeds(text string) string {
	return embedRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := embedRe.FindStringSubmatch(m)
		filename := strings.TrimSpace(sub[1])
		caption := strings.TrimSpace(sub[2])
		if filename == "" {
			return m
		}
		return r.mediaEmbed(filename, caption)
	})
}

// expandWikilinks rewrites [[target]] / [[target|display]] into anchor
// elements. A '#section' suffix is excluded from the existence check
// but preserved in the emitted address. Broken targets stay clickable:
// the client offers "create note from link" on them.
func (r *Renderer) expandWikilinks(text string) string {
	return wikilinkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		raw := strings.TrimSpace(sub[1])
		display := strings.TrimSpace(sub[2])
		if raw == "" {
			return m
		}
		base, anchor := parser.SplitAnchor(raw)
		if display == "" {
			display = raw
		}

		class := "wikilink"
		if base == "" || !r.resolver.Exists(base) {
			class = "wikilink wikilink-broken"
		}
		return fmt.Sprintf(`<a href="%s" class="%s" data-target="%s">%s</a>`,
			noteURL(base, anchor), class, html.EscapeString(base), html.EscapeString(display))
	})
}
