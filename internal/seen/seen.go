// Package seen tracks URLs that already made it through the pipeline
// so reruns do not republish the same story.
package seen

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketPublished = []byte("published")

// Store is a small on-disk set of published article URLs backed by
// bbolt. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open seen store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPublished)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init seen store %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Seen reports whether the URL was already marked as published.
func (s *Store) Seen(url string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketPublished).Get(keyFor(url)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("read seen store: %w", err)
	}
	return found, nil
}

// Mark records the URL as published. Marking an already marked URL
// refreshes its timestamp.
func (s *Store) Mark(url string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPublished).Put(keyFor(url), []byte(now))
	})
	if err != nil {
		return fmt.Errorf("write seen store: %w", err)
	}
	return nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func keyFor(url string) []byte {
	sum := sha1.Sum([]byte(url))
	return []byte(hex.EncodeToString(sum[:]))
}
