package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current cache schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaInfo = []byte("schema_info")

// SchemaInfo records which model filled the cache.
type SchemaInfo struct {
	Version   int    `json:"version"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// MigrationResult describes the result of a schema check.
type MigrationResult struct {
	NeedsRebuild bool
	Reason       string
}

// GetSchemaInfo retrieves the stored schema info. A fresh cache returns zero values.
func (c *BoltCache) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	return &info, err
}

// CheckSchema compares the stored schema with the active model.
func (c *BoltCache) CheckSchema(model string, dimension int) (*MigrationResult, error) {
	info, err := c.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{}
	switch {
	case info.Version == 0:
		// fresh cache
	case info.Version != CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("cache schema v%d, expected v%d", info.Version, CurrentSchemaVersion)
	case info.Model != model:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed from %q to %q", info.Model, model)
	case info.Dimension != dimension:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding dimension changed from %d to %d", info.Dimension, dimension)
	}
	return result, nil
}

// Migrate clears stale entries when needed and stamps the active model.
func (c *BoltCache) Migrate(model string, dimension int) (*MigrationResult, error) {
	result, err := c.CheckSchema(model, dimension)
	if err != nil {
		return nil, err
	}
	if result.NeedsRebuild {
		if err := c.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	data, err := json.Marshal(SchemaInfo{Version: CurrentSchemaVersion, Model: model, Dimension: dimension})
	if err != nil {
		return nil, err
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaInfo, data)
	})
	return result, err
}

// Clear removes every cached embedding.
func (c *BoltCache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		if b == nil {
			return nil
		}

		var keys [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
