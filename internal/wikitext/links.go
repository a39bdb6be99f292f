package wikitext

import (
	"regexp"
	"strings"
)

var (
	reExternalLink = regexp.MustCompile(`\[(?:https?://|ftp://)([^\s\]]+)(?:\s+([^\]]+))?\]`)
	reInternalLink = regexp.MustCompile(`\[\[([^|\]]+)(?:\|([^\]]+))?\]\]`)
)

// RewriteExternalLinks replaces [http://url label] with its label. Links
// without a label disappear.
func RewriteExternalLinks(text string) string {
	return reExternalLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := reExternalLink.FindStringSubmatch(m)
		return sub[2]
	})
}

// RewriteInternalLinks replaces [[target|label]] with label and [[target]]
// with target. Links into a non-content namespace are dropped, label and all.
func RewriteInternalLinks(text string) string {
	return reInternalLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := reInternalLink.FindStringSubmatch(m)
		target, label := sub[1], sub[2]
		if inNonContentNamespace(target) {
			return ""
		}
		if label != "" {
			return label
		}
		return target
	})
}

func inNonContentNamespace(target string) bool {
	target = strings.TrimPrefix(strings.TrimSpace(target), ":")
	prefix, _, ok := strings.Cut(target, ":")
	return ok && IsNonContentNamespace(prefix)
}
