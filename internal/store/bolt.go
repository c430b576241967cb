package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedgate/internal/interfaces"

	"go.etcd.io/bbolt"
)

var bucketAccounts = []byte("accounts")

// BoltStore keeps records in a single bbolt bucket.
type BoltStore struct {
	db *bbolt.DB
}

var _ interfaces.Store = (*BoltStore)(nil)

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAccounts)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketAccounts).Get(key)
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (s *BoltStore) Put(_ context.Context, key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put(key, value)
	})
}

func (s *BoltStore) Contains(_ context.Context, key []byte) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketAccounts).Get(key) != nil
		return nil
	})
	return found, err
}

// Remove deletes key. Removing an absent key is not an error.
func (s *BoltStore) Remove(_ context.Context, key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).Delete(key)
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }
