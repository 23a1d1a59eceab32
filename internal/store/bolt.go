package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ktanaka/receipt-ledger/internal/record"
)

const (
	recordsBucket      = "records"
	participantsBucket = "participants"

	snapshotKey = "snapshot"
)

// Bolt is the local persistence collaborator: it archives record snapshots
// between sessions and keeps the shared participant name pool. Both are
// injected into the pipeline and CLI rather than reached for ambiently.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens (or creates) the database file and its buckets.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(recordsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(participantsBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// SaveRecords archives the full record list, newest first, replacing any
// previous snapshot.
func (b *Bolt) SaveRecords(recs []*record.Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(recs)
		if err != nil {
			return fmt.Errorf("marshaling records: %w", err)
		}
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(snapshotKey), data)
	})
}

// LoadRecords returns the archived record list, or nil when none was saved.
func (b *Bolt) LoadRecords() ([]*record.Record, error) {
	var recs []*record.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucket)).Get([]byte(snapshotKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &recs)
	})
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return recs, nil
}

// AddNames inserts participant names into the pool. Duplicates are no-ops.
func (b *Bolt) AddNames(names []string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(participantsBucket))
		for _, n := range names {
			if err := bucket.Put([]byte(n), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListNames returns all pooled participant names in byte order.
func (b *Bolt) ListNames() ([]string, error) {
	var names []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(participantsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	return names, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}
