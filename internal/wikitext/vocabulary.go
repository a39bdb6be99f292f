package wikitext

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// metadataSections holds heading names of trailing sections that carry no
// prose: see also, references, external links, bibliography, further reading.
var metadataSections = newVocabulary(
	// see also
	"See also", "இவற்றையும் பார்க்க", "இவற்றையும் பார்க்கவும்", "மேலும் காண்க",
	"பின்வருவனவற்றையும் பார்க்கவும்",
	// references
	"References", "மேற்கோள்கள்", "குறிப்புகள்", "சான்றுகள்", "உசாத்துணை",
	// external links
	"External links", "வெளி இணைப்புகள்", "புற இணைப்புகள்",
	// bibliography
	"Bibliography", "நூற்பட்டியல்", "நூல்கள்",
	// further reading
	"Further reading", "மேலும் படிக்க",
)

// nonContentNamespaces are link prefixes that never point at article prose.
var nonContentNamespaces = newVocabulary(
	"file", "image", "category", "help", "wikipedia",
	"படிமம்", "கோப்பு", "பகுப்பு", "உதவி", "விக்கிப்பீடியா",
)

type vocabulary map[string]struct{}

func newVocabulary(words ...string) vocabulary {
	v := make(vocabulary, len(words))
	for _, w := range words {
		v[vocabularyKey(w)] = struct{}{}
	}
	return v
}

func (v vocabulary) has(s string) bool {
	_, ok := v[vocabularyKey(s)]
	return ok
}

// vocabularyKey trims, case-folds and NFC-normalizes s so that Tamil text
// typed in decomposed form still matches.
func vocabularyKey(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// IsMetadataSection reports whether a heading text names a metadata section.
func IsMetadataSection(name string) bool {
	return metadataSections.has(name)
}

// IsNonContentNamespace reports whether a link namespace prefix is one whose
// links are dropped entirely.
func IsNonContentNamespace(prefix string) bool {
	return nonContentNamespaces.has(prefix)
}
