package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltCache is the file-backed local fallback area. Each key is a bucket.
type BoltCache struct {
	db *bolt.DB
}

type localRecord struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func OpenBoltCache(path string) (*BoltCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Close() error { return c.db.Close() }

func (c *BoltCache) Append(key, id string, data json.RawMessage) error {
	rec, err := json.Marshal(localRecord{Data: data, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		return b.Put([]byte(id), rec)
	})
}

func (c *BoltCache) Update(key, id string, patch map[string]any) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return ErrNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var rec localRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		data, err := mergePatch(rec.Data, patch)
		if err != nil {
			return err
		}
		rec.Data = data
		rec.UpdatedAt = time.Now().UTC()
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}

func (c *BoltCache) Get(key, id string) (Document, error) {
	var d Document
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return ErrNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var err error
		d, err = decodeLocal(id, raw)
		return err
	})
	return d, err
}

func (c *BoltCache) List(key string) ([]Document, error) {
	var out []Document
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			d, err := decodeLocal(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, d)
			return nil
		})
	})
	return out, err
}

func (c *BoltCache) Delete(key, id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil || b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// decodeLocal copies out of the bolt page since values are only valid
// inside the transaction.
func decodeLocal(id string, raw []byte) (Document, error) {
	var rec localRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Document{}, err
	}
	data := make(json.RawMessage, len(rec.Data))
	copy(data, rec.Data)
	return Document{ID: id, Data: data, UpdatedAt: rec.UpdatedAt}, nil
}
