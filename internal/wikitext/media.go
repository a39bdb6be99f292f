package wikitext

import (
	"regexp"
	"strings"
)

// mediaPasses bounds the fixed-point loop in RemoveMedia.
const mediaPasses = 3

var (
	reCategoryLink   = regexp.MustCompile(`\[\[Category:[^\]]+\]\]`)
	reCategoryLinkTa = regexp.MustCompile(`\[\[பகுப்பு:.*?\]\]`)
	reCategoryTailTa = regexp.MustCompile(`(?m)பகுப்பு:.*$`)

	reMediaPrefix = regexp.MustCompile(`(?i)^\[\[:?(?:file|image|படிமம்|கோப்பு):`)

	reMediaKeyword = regexp.MustCompile(`\b(?:thumb|thumbnail|frame|frameless|border|left|right|center|none|\d+px)\b\|?`)
	reMediaTail    = regexp.MustCompile(`(?m)^\s*\)\s*\]\]`)
	reEmptyParens  = regexp.MustCompile(`\(\s*\)`)
)

// RemoveCategories strips category links in both the English and the Tamil
// namespace, plus bare Tamil category tails left on a line.
func RemoveCategories(text string) string {
	text = reCategoryLink.ReplaceAllString(text, "")
	text = reCategoryLinkTa.ReplaceAllString(text, "")
	text = reCategoryTailTa.ReplaceAllString(text, "")
	return text
}

// RemoveMedia strips [[File:...]] style embeds with their whole parameter
// list, then sweeps the parameter keywords and bracket debris they leave
// behind.
func RemoveMedia(text string) string {
	for i := 0; i < mediaPasses; i++ {
		next := removeMediaEmbeds(text)
		if next == text {
			break
		}
		text = next
	}

	text = reMediaKeyword.ReplaceAllString(text, "")
	text = reMediaTail.ReplaceAllString(text, "")
	text = reEmptyParens.ReplaceAllString(text, "")
	return text
}

func removeMediaEmbeds(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for {
		k := strings.Index(text[i:], "[[")
		if k < 0 {
			b.WriteString(text[i:])
			break
		}
		k += i
		b.WriteString(text[i:k])

		if reMediaPrefix.MatchString(text[k:]) {
			if end, ok := matchBrackets(text, k); ok {
				i = end
				continue
			}
		}
		b.WriteString("[[")
		i = k + 2
	}
	return b.String()
}

// matchBrackets returns the offset just past the bracket that balances the
// one at start. Single and double brackets count alike, so captions holding
// [[links]] or [http://x labels] stay inside the embed.
func matchBrackets(text string, start int) (int, bool) {
	depth := 0
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
	}
	return len(text), false
}
