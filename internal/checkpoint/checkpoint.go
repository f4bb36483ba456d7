package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// BatchMetadata stores metadata about written batch files
type BatchMetadata struct {
	FileName  string    `json:"filename"`
	Dataset   string    `json:"dataset,omitempty"`
	Format    string    `json:"format,omitempty"`
	Records   int       `json:"records"`
	Failures  int       `json:"failures,omitempty"`
	WrittenAt time.Time `json:"written_at"`
	FileSize  int64     `json:"file_size"`
}

// Checkpointer handles conversion and download checkpoints using bbolt
type Checkpointer struct {
	db *bbolt.DB
}

// NewCheckpointer creates a new checkpointer with the given database path
func NewCheckpointer(dbPath string) (*Checkpointer, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	// Create buckets for fetched source files, converted documents
	// and written batches
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("FetchedFiles"))
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists([]byte("ConvertedDocuments"))
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists([]byte("WrittenBatches"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Checkpointer{db: db}, nil
}

// Close closes the underlying database
func (c *Checkpointer) Close() error {
	return c.db.Close()
}

// IsFetched returns true if the given source file has already been downloaded
func (c *Checkpointer) IsFetched(filename string) bool {
	var exists bool
	c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("FetchedFiles"))
		v := b.Get([]byte(filename))
		exists = (v != nil)
		return nil
	})
	return exists
}

// MarkFetched marks the given source file as downloaded
func (c *Checkpointer) MarkFetched(filename string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("FetchedFiles"))
		return b.Put([]byte(filename), []byte("completed"))
	})
}

// IsConverted returns true if the given document has already been converted
// and written into a batch file
func (c *Checkpointer) IsConverted(path string) bool {
	var exists bool
	c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("ConvertedDocuments"))
		v := b.Get([]byte(path))
		exists = (v != nil)
		return nil
	})
	return exists
}

// MarkConverted marks the given document as converted
func (c *Checkpointer) MarkConverted(path string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("ConvertedDocuments"))
		return b.Put([]byte(path), []byte("completed"))
	})
}

// AddBatch adds metadata for a fully written batch file
func (c *Checkpointer) AddBatch(metadata BatchMetadata) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("WrittenBatches"))
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		return b.Put([]byte(metadata.FileName), data)
	})
}

// IsBatchWritten checks if a batch file has been fully written
func (c *Checkpointer) IsBatchWritten(filename string) bool {
	var exists bool
	c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("WrittenBatches"))
		v := b.Get([]byte(filename))
		exists = (v != nil)
		return nil
	})
	return exists
}

// GetBatchMetadata retrieves metadata for a written batch file
func (c *Checkpointer) GetBatchMetadata(filename string) (*BatchMetadata, error) {
	var metadata *BatchMetadata
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("WrittenBatches"))
		data := b.Get([]byte(filename))
		if data == nil {
			return fmt.Errorf("batch metadata not found: %s", filename)
		}
		return json.Unmarshal(data, &metadata)
	})
	return metadata, err
}

// GetAllBatches returns metadata for all written batch files
func (c *Checkpointer) GetAllBatches() ([]BatchMetadata, error) {
	var batches []BatchMetadata
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("WrittenBatches"))
		return b.ForEach(func(k, v []byte) error {
			var metadata BatchMetadata
			if err := json.Unmarshal(v, &metadata); err != nil {
				return err
			}
			batches = append(batches, metadata)
			return nil
		})
	})
	return batches, err
}

// RemoveBatch removes a batch file from the written list
func (c *Checkpointer) RemoveBatch(filename string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte("WrittenBatches"))
		return b.Delete([]byte(filename))
	})
}
