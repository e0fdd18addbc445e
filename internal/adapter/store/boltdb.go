package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"go.etcd.io/bbolt"
)

var (
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// BoltCache persists computed embeddings keyed by model and text, so
// re-embedding the same normalized text never calls the model twice.
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens (or creates) the cache database at path.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEmbeddings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

// Get returns the cached vector for model and text.
func (c *BoltCache) Get(model, text string) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(cacheKey(model, text))
		if data == nil {
			return nil
		}
		vec = decodeVector(data)
		return nil
	})
	if err != nil || vec == nil {
		return nil, false
	}
	return vec, true
}

// Put stores vector for model and text.
func (c *BoltCache) Put(model, text string, vector []float32) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(cacheKey(model, text), encodeVector(vector))
	})
}

// Count returns the number of cached vectors.
func (c *BoltCache) Count() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
