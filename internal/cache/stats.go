package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const statsBucket = "frame_stats"

// StatsStore persists computed frame statistics keyed by source and frame.
type StatsStore struct {
	DB *bbolt.DB
}

func OpenStatsStore(path string) (*StatsStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &StatsStore{DB: db}, nil
}

func (s *StatsStore) Close() error {
	return s.DB.Close()
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent.
func (s *StatsStore) Get(key string, v any) (bool, error) {
	found := false
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", statsBucket)
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, v)
	})
	return found, err
}

// Put stores v under key, replacing any previous value.
func (s *StatsStore) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", statsBucket)
		}
		return b.Put([]byte(key), raw)
	})
}

// Len returns the number of stored entries.
func (s *StatsStore) Len() (int, error) {
	n := 0
	err := s.DB.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(statsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
