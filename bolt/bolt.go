// Package bolt persists cookies in a bbolt database, layered over the
// in-memory store.
package bolt

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultPath the default database directory.
const DefaultPath = "cookies"

// ErrKeyNotFound not found the key
var ErrKeyNotFound = errors.New("key not found")

var expireBucketName = []byte("expire")

// DB a bbolt.DB instance with one value bucket and a parallel bucket
// of absolute deadlines. Expired keys are dropped lazily on read and
// on iteration.
type DB struct {
	bucketName []byte
	db         *bbolt.DB
}

// NewDB creates a new DB instance at path/name.
func NewDB(path, name string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(filepath.Join(path, name), 0600, &bbolt.Options{
		Timeout:         1 * time.Second,
		InitialMmapSize: 1024,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err = tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(expireBucketName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DB{bucketName: []byte(name), db: db}, nil
}

// Put writes the kv pair without a deadline.
func (db *DB) Put(key, value []byte) error {
	return db.PutUntil(key, value, time.Time{})
}

// PutUntil writes the kv pair with an absolute deadline after which
// Get and ForEach treat the key as absent. A zero deadline means no
// expiry.
func (db *DB) PutUntil(key, value []byte, deadline time.Time) error {
	return db.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(db.bucketName).Put(key, value); err != nil {
			return err
		}
		expire := tx.Bucket(expireBucketName)
		if deadline.IsZero() {
			return expire.Delete(key)
		}
		ddl := make([]byte, 8)
		binary.BigEndian.PutUint64(ddl, uint64(deadline.Unix()))
		return expire.Put(key, ddl)
	})
}

// Get reads the value for key, ErrKeyNotFound when absent or past its
// deadline.
func (db *DB) Get(key []byte) (value []byte, err error) {
	err = db.db.View(func(tx *bbolt.Tx) error {
		if ddl := tx.Bucket(expireBucketName).Get(key); ddl != nil {
			if time.Now().Unix() > int64(binary.BigEndian.Uint64(ddl)) {
				return ErrKeyNotFound
			}
		}
		v := tx.Bucket(db.bucketName).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return
}

// Delete removes key and its deadline.
func (db *DB) Delete(key []byte) error {
	return db.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(db.bucketName).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(expireBucketName).Delete(key)
	})
}

// ForEach calls fn for every live kv pair and purges the keys found
// past their deadline.
func (db *DB) ForEach(fn func(key, value []byte) error) error {
	var expired [][]byte
	now := time.Now().Unix()

	err := db.db.View(func(tx *bbolt.Tx) error {
		expire := tx.Bucket(expireBucketName)
		return tx.Bucket(db.bucketName).ForEach(func(k, v []byte) error {
			if ddl := expire.Get(k); ddl != nil {
				if now > int64(binary.BigEndian.Uint64(ddl)) {
					expired = append(expired, append([]byte(nil), k...))
					return nil
				}
			}
			return fn(k, v)
		})
	})
	if err != nil {
		return err
	}

	if len(expired) == 0 {
		return nil
	}
	return db.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(db.bucketName)
		expire := tx.Bucket(expireBucketName)
		for _, k := range expired {
			if err = bucket.Delete(k); err != nil {
				return err
			}
			if err = expire.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear drops and recreates both buckets.
func (db *DB) Clear() error {
	return db.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{db.bucketName, expireBucketName} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (db *DB) Close() error {
	if err := db.db.Sync(); err != nil {
		return err
	}
	return db.db.Close()
}
