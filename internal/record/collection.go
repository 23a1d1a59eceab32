package record

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ktanaka/receipt-ledger/constants"
)

// Collection is the user-visible record set, newest first. The pipeline is
// its only writer during a batch; review edits arrive between batches. The
// mutex keeps the structure safe if a caller reads while a batch runs.
type Collection struct {
	mu      sync.Mutex
	records []*Record
}

func NewCollection() *Collection {
	return &Collection{}
}

// Add prepends a record, keeping newest-first order.
func (c *Collection) Add(r *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append([]*Record{r}, c.records...)
}

// Get returns the record with the given ID, or nil.
func (c *Collection) Get(id uuid.UUID) *Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Update applies fn to the record with the given ID under the lock. Returns
// false when no such record exists.
func (c *Collection) Update(id uuid.UUID, fn func(*Record)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			fn(r)
			return true
		}
	}
	return false
}

// Replace removes the placeholder record and prepends the replacements,
// preserving their order and newest-first semantics. Used when a video's
// single processing record fans out into per-receipt success records.
func (c *Collection) Replace(placeholderID uuid.UUID, replacements []*Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.records[:0:0]
	for _, r := range c.records {
		if r.ID != placeholderID {
			kept = append(kept, r)
		}
	}
	c.records = append(append([]*Record{}, replacements...), kept...)
}

// Delete removes a record immediately. No soft-delete.
func (c *Collection) Delete(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot of all records, newest first.
func (c *Collection) List() []*Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Record, len(c.records))
	copy(out, c.records)
	return out
}

// Successes returns the records ready for export, newest first.
func (c *Collection) Successes() []*Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Record
	for _, r := range c.records {
		if r.Status == constants.StatusSuccess && r.Fields != nil {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
