package tokenstore

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketTokens = "console_tokens"

// Bolt stores credentials in a local bbolt file so a restarted console
// resumes the previous session.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the token file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open token file %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketTokens))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, key string) (string, error) {
	var v string
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketTokens)).Get([]byte(key))
		if len(raw) == 0 {
			return ErrNotFound
		}
		v = string(raw)
		return nil
	})
	return v, err
}

func (b *Bolt) Set(_ context.Context, key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTokens)).Put([]byte(key), []byte(value))
	})
}

func (b *Bolt) Clear(context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketTokens))
		for _, k := range []string{KeyAccess, KeyRefresh} {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) Close() error { return b.db.Close() }
