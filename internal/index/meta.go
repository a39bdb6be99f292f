package index

import bolt "go.etcd.io/bbolt"

// Meta keys.
const (
	MetaFingerprint = "fingerprint"
	MetaBuiltAt     = "built_at"
)

// SetMeta stores a small bookkeeping value next to the records.
func (s *Store) SetMeta(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bMeta).Put([]byte(key), []byte(value))
	})
}

// GetMeta returns the value stored under key, or "" when unset.
func (s *Store) GetMeta(key string) (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		v = string(tx.Bucket(bMeta).Get([]byte(key)))
		return nil
	})
	return v, err
}
