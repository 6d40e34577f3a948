// Package boltstore is a bbolt-backed storage.Store. Values are wrapped in
// a small JSON envelope carrying the expiry; expired entries are dropped
// lazily when read.
package boltstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/jrsteele09/go-atproto-sessions/storage"
)

var bucketName = []byte("sessions")

type envelope struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

type Store struct {
	db      *bolt.DB
	nowTime func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "[boltstore.Open] open database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[boltstore.Open] create bucket")
	}

	return &Store{db: db, nowTime: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	var expiredAt time.Time
	expired := false

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return nil
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if !env.ExpiresAt.IsZero() && s.nowTime().After(env.ExpiresAt) {
			expired = true
			expiredAt = env.ExpiresAt
			return nil
		}
		value = env.Value
		return nil
	})
	if err != nil {
		return nil, storage.NewStorageError("get", key, err)
	}

	if expired {
		// Best effort cleanup; the entry is already invisible to readers.
		// Deletes only the envelope observed above, so a value written
		// between the two transactions survives.
		_ = s.db.Update(func(tx *bolt.Tx) error {
			raw := tx.Bucket(bucketName).Get([]byte(key))
			if raw == nil {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil
			}
			if !env.ExpiresAt.Equal(expiredAt) {
				return nil
			}
			return tx.Bucket(bucketName).Delete([]byte(key))
		})
		return nil, nil
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	env := envelope{Value: value}
	if ttl > 0 {
		env.ExpiresAt = s.nowTime().Add(ttl)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return storage.NewStorageError("set", key, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
	if err != nil {
		return storage.NewStorageError("set", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return storage.NewStorageError("delete", key, err)
	}
	return nil
}
