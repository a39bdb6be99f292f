package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	"wikimd/internal/domain/corpus"
)

var ErrNotFound = errors.New("not found")

type SortMode string

const (
	SortSlug SortMode = "slug"
	SortSize SortMode = "size"
)

func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortSlug:
		return SortSlug, nil
	case SortSize:
		return SortSize, nil
	}
	return "", errors.New("sort must be 'slug' or 'size'")
}

type ListOptions struct {
	Sort SortMode
	Page int
	Size int
}

func (s *Store) Get(slug string) (corpus.Record, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return corpus.Record{}, ErrNotFound
	}
	var r corpus.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bRecords).Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &r)
	})
	return r, err
}

// SlugForSource returns the slug of the record converted from path.
func (s *Store) SlugForSource(path string) (string, error) {
	var slug string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bSources).Get([]byte(path))
		if v == nil {
			return ErrNotFound
		}
		slug = string(v)
		return nil
	})
	return slug, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// List returns one page of records in the requested order.
func (s *Store) List(opt ListOptions) ([]corpus.Record, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)
	skip := (opt.Page - 1) * opt.Size

	var out []corpus.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		recB := tx.Bucket(bRecords)
		return walk(tx, opt.Sort, func(slug string) (bool, error) {
			if skip > 0 {
				skip--
				return true, nil
			}
			v := recB.Get([]byte(slug))
			if v == nil {
				return true, nil
			}
			var r corpus.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return false, err
			}
			out = append(out, r)
			return len(out) < opt.Size, nil
		})
	})
	return out, err
}

// Each calls fn for every record in slug order until fn returns an error.
func (s *Store) Each(fn func(corpus.Record) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bRecords).ForEach(func(_, v []byte) error {
			var r corpus.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			return fn(r)
		})
	})
}

func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bRecords).Stats().KeyN
		return nil
	})
	return n, err
}

// walk visits slugs in sort order. visit returns false to stop.
func walk(tx *bolt.Tx, mode SortMode, visit func(slug string) (bool, error)) error {
	if mode == SortSize {
		cur := tx.Bucket(bIdxSize).Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromSizeSlugKey(k)
			if slug == "" {
				continue
			}
			more, err := visit(slug)
			if err != nil || !more {
				return err
			}
		}
		return nil
	}
	cur := tx.Bucket(bRecords).Cursor()
	for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
		more, err := visit(string(k))
		if err != nil || !more {
			return err
		}
	}
	return nil
}
