// Package build holds the fingerprint that decides whether a dataset build
// can be skipped.
package build

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wikimd/internal/domain/corpus"
)

type Fingerprint struct {
	ContentHash   string
	ConfigHash    string
	ConverterHash string
	BuildHash     string
}

func (f *Fingerprint) ComputeBuildHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConfigHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConverterHash))
	f.BuildHash = hex.EncodeToString(h.Sum(nil))
}

// ContentHash digests the slug and source hash of every record, independent
// of record order.
func ContentHash(records []corpus.Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Slug+"\x00"+r.SourceHash)
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// ValueHash digests the YAML encoding of v. Anything that marshals is
// accepted; a marshal failure yields "".
func ValueHash(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// New builds a fingerprint and fills BuildHash.
func New(records []corpus.Record, cfg any, stages []string) Fingerprint {
	f := Fingerprint{
		ContentHash:   ContentHash(records),
		ConfigHash:    ValueHash(cfg),
		ConverterHash: ValueHash(stages),
	}
	f.ComputeBuildHash()
	return f
}
