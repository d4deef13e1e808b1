// Package bbolt implements ports.MetadataStore using bbolt (embedded B+ tree).
// All entries live in one top-level bucket as raw string keys and values.
// Every mutation is its own transaction, so a crash mid-write cannot corrupt
// previously committed entries.
package bbolt

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds metadata entries when no bucket is given.
const DefaultBucket = "metadata"

// Store implements ports.MetadataStore backed by bbolt.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// NewStore opens (or creates) a bbolt database at the given path using
// DefaultBucket.
func NewStore(path string) (*Store, error) {
	return NewStoreWithBucket(path, DefaultBucket)
}

// NewStoreWithBucket opens the database and makes sure bucket exists.
// Opening fails after one second if another process holds the file.
func NewStoreWithBucket(path, bucket string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	s := &Store{db: db, bucket: []byte(bucket)}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return s, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

// PutIfAbsent stores value under key unless key already exists, in which
// case the existing value is returned with true.
func (s *Store) PutIfAbsent(key, value string) (string, bool, error) {
	var (
		existing string
		found    bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if v := b.Get([]byte(key)); v != nil {
			existing, found = string(v), true
			return nil
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return "", false, fmt.Errorf("put %q: %w", key, err)
	}
	return existing, found, nil
}

// Replace sets key to newValue only if it currently holds oldValue.
func (s *Store) Replace(key, oldValue, newValue string) (bool, error) {
	replaced := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(key))
		if v == nil || string(v) != oldValue {
			return nil
		}
		replaced = true
		return b.Put([]byte(key), []byte(newValue))
	})
	if err != nil {
		return false, fmt.Errorf("replace %q: %w", key, err)
	}
	return replaced, nil
}

// Remove deletes key and returns the value it held.
// Idempotent: removing a missing key is not an error.
func (s *Store) Remove(key string) (string, bool, error) {
	var (
		old   string
		found bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		old, found = string(v), true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return "", false, fmt.Errorf("remove %q: %w", key, err)
	}
	return old, found, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}
