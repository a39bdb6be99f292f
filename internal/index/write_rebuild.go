package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"wikimd/internal/domain/corpus"
)

// Rebuild replaces every record in the index in a single transaction.
// Values stored with SetMeta are kept.
func (s *Store) Rebuild(records []corpus.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range recordBuckets {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		for _, r := range records {
			if err := putRecord(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Put inserts or replaces one record.
func (s *Store) Put(r corpus.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := deleteRecord(tx, r.Slug); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return putRecord(tx, r)
	})
}

// Delete removes the record stored under slug.
func (s *Store) Delete(slug string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteRecord(tx, strings.TrimSpace(slug))
	})
}

// DeleteSource removes the record converted from the given source path.
func (s *Store) DeleteSource(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket(bSources).Get([]byte(path))
		if v == nil {
			return ErrNotFound
		}
		return deleteRecord(tx, string(v))
	})
}

func putRecord(tx *bolt.Tx, r corpus.Record) error {
	slug := strings.TrimSpace(r.Slug)
	if slug == "" {
		return fmt.Errorf("index: record from %q has no slug", r.SourcePath)
	}
	rb, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bRecords).Put([]byte(slug), rb); err != nil {
		return err
	}
	if err := tx.Bucket(bIdxSize).Put(makeSizeSlugKey(r.Chars, slug), []byte{1}); err != nil {
		return err
	}
	if r.SourcePath != "" {
		if err := tx.Bucket(bSources).Put([]byte(r.SourcePath), []byte(slug)); err != nil {
			return err
		}
	}
	return nil
}

func deleteRecord(tx *bolt.Tx, slug string) error {
	recB := tx.Bucket(bRecords)
	v := recB.Get([]byte(slug))
	if v == nil {
		return ErrNotFound
	}
	var old corpus.Record
	if err := json.Unmarshal(v, &old); err != nil {
		return err
	}
	if err := tx.Bucket(bIdxSize).Delete(makeSizeSlugKey(old.Chars, slug)); err != nil {
		return err
	}
	if old.SourcePath != "" {
		if err := tx.Bucket(bSources).Delete([]byte(old.SourcePath)); err != nil {
			return err
		}
	}
	return recB.Delete([]byte(slug))
}
