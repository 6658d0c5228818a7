package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// matchSnippet returns a window of up to snippetMaxLen characters around
// the first match of re in content, with ellipses on each truncated side.
// With no match it falls back to the leading snippet.
func matchSnippet(content string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(content)
	if loc == nil {
		return leadingSnippet(content)
	}

	matchLen := loc[1] - loc[0]
	pad := (snippetMaxLen - matchLen) / 2
	if pad < 0 {
		pad = 0
	}

	start := loc[0] - pad
	if start < 0 {
		start = 0
	}
	end := start + snippetMaxLen
	if end > len(content) {
		end = len(content)
		if start = end - snippetMaxLen; start < 0 {
			start = 0
		}
	}

	start = alignRuneStart(content, start)
	end = alignRuneStart(content, end)

	snippet := strings.TrimSpace(content[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

// leadingSnippet returns up to the first snippetMaxLen characters of
// content with a trailing ellipsis when truncated.
func leadingSnippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetMaxLen {
		return content
	}
	end := alignRuneStart(content, snippetMaxLen)
	return strings.TrimSpace(content[:end]) + "..."
}

// alignRuneStart moves i back to the nearest rune boundary so byte slicing
// never splits a multi-byte character.
func alignRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
