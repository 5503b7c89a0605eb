package extract

import (
	"regexp"
	"strings"
)

// CleanText normalises extracted text for storage and downstream ranking.
// It strips zero-width characters, collapses whitespace, and trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)
	text = collapseWhitespace(text)
	return strings.TrimSpace(text)
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return multiSpaceRe.ReplaceAllString(s, " ")
}
