package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

// FrontMatter is the optional YAML block ahead of a wikitext body.
type FrontMatter struct {
	Title    string            `yaml:"title"`
	Slug     string            `yaml:"slug"`
	Skip     bool              `yaml:"skip"`
	Metadata map[string]string `yaml:"metadata"`
}

// ParseFrontMatter splits raw into front matter and body. When raw has no
// front matter the whole input is returned as body with errNoFrontMatter.
//
// The opening line must be exactly "---"; a wikitext rule ("----") is body.
func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	trimmed := bytes.TrimLeft(norm, "\n")
	if !bytes.HasPrefix(trimmed, []byte(sepLine)) {
		return FrontMatter{}, norm, errNoFrontMatter
	}
	rest := trimmed[len(sepLine):]

	var yamlPart, bodyPart []byte
	switch {
	case bytes.HasPrefix(rest, []byte(sepLine)):
		bodyPart = rest[len(sepLine):]
	case bytes.Contains(rest, []byte(closeMid)):
		parts := bytes.SplitN(rest, []byte(closeMid), 2)
		yamlPart, bodyPart = parts[0], parts[1]
	case bytes.HasSuffix(rest, []byte("\n"+sep)):
		yamlPart = rest[:len(rest)-len("\n"+sep)]
	case bytes.Equal(bytes.TrimSpace(rest), []byte(sep)):
	default:
		return FrontMatter{}, norm, errInvalidFrontMatter
	}

	var fm FrontMatter
	if len(bytes.TrimSpace(yamlPart)) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return FrontMatter{}, norm, err
		}
	}
	return fm, bodyPart, nil
}

// StripFrontMatter returns the body of raw. Input without front matter is
// returned with line endings normalized.
func StripFrontMatter(raw []byte) ([]byte, error) {
	_, body, err := ParseFrontMatter(raw)
	if err != nil && !errors.Is(err, errNoFrontMatter) {
		return nil, err
	}
	return body, nil
}

// ResolveTitle prefers the front matter title and falls back to the file
// name with underscores read as spaces, the way wiki dumps name pages.
func ResolveTitle(fm FrontMatter, path string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
}

func ResolveSlug(fm FrontMatter, path string) string {
	if s := strings.TrimSpace(fm.Slug); s != "" {
		return slugify(s)
	}
	return slugify(ResolveTitle(fm, path))
}

// HashBytes returns the hex sha256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// slugify lower-cases ASCII letters, keeps letters, digits and combining
// marks of any script and folds every other run into a single dash.
func slugify(s string) string {
	s = strings.TrimSpace(s)
	var out []rune
	lastDash := false

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if 'A' <= r && r <= 'Z' {
				r += 'a' - 'A'
			}
			out = append(out, r)
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
