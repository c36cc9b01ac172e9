package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"
)

// bucketRuns holds runs keyed by big-endian ID.
var bucketRuns = []byte("runs")

// Run is one recorded example execution.
type Run struct {
	ID        uint64            `json:"id"`
	Service   string            `json:"service"`
	Example   string            `json:"example"`
	Params    map[string]string `json:"params,omitempty"`
	Region    string            `json:"region,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Error     string            `json:"error,omitempty"`
}

// Failed reports whether the run returned an error.
func (r Run) Failed() bool {
	return r.Error != ""
}

// Filter narrows History.Query results. Zero fields match everything.
type Filter struct {
	Service    string
	Example    string
	FailedOnly bool
	Limit      int
}

func (f Filter) match(r Run) bool {
	if f.Service != "" && r.Service != f.Service {
		return false
	}
	if f.Example != "" && r.Example != f.Example {
		return false
	}
	if f.FailedOnly && !r.Failed() {
		return false
	}
	return true
}

// History stores runs on disk with an in-memory index ordered by ID.
type History struct {
	mu sync.RWMutex

	// In-memory index for ordered scans
	index *btree.BTreeG[Run]

	// On-disk storage
	db *bbolt.DB
}

func lessRun(a, b Run) bool {
	return a.ID < b.ID
}

// OpenHistory opens (or creates) the history database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	h := &History{
		index: btree.NewG[Run](32, lessRun),
		db:    db,
	}

	if err := h.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rebuild history index: %w", err)
	}

	return h, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores a run and returns it with its assigned ID.
func (h *History) Record(run Run) (Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		id, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		run.ID = id

		value, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return bucket.Put(uint64ToBytes(id), value)
	})
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	h.index.ReplaceOrInsert(run)
	return run, nil
}

// Get returns a run by ID.
func (h *History) Get(id uint64) (Run, bool, error) {
	var (
		run   Run
		found bool
	)
	err := h.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get(uint64ToBytes(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &run)
	})
	return run, found, err
}

// Query returns matching runs, newest first.
func (h *History) Query(f Filter) []Run {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Run
	h.index.Descend(func(r Run) bool {
		if f.match(r) {
			out = append(out, r)
		}
		return f.Limit <= 0 || len(out) < f.Limit
	})
	return out
}

// Len returns the number of stored runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index.Len()
}

// Prune keeps the newest keep runs and deletes the rest. It returns the
// number of deleted runs.
func (h *History) Prune(keep int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	excess := h.index.Len() - keep
	if excess <= 0 {
		return 0, nil
	}

	victims := make([]Run, 0, excess)
	h.index.Ascend(func(r Run) bool {
		victims = append(victims, r)
		return len(victims) < excess
	})

	err := h.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		for _, r := range victims {
			if err := bucket.Delete(uint64ToBytes(r.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}

	for _, r := range victims {
		h.index.Delete(r)
	}
	return len(victims), nil
}

func (h *History) rebuildIndex() error {
	return h.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			h.index.ReplaceOrInsert(r)
			return nil
		})
	})
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
