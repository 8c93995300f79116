// Package catalog persists the representatives of discovered symmetry
// classes in a badger database.
//
// Records are keyed by run and class ID, so one catalog directory can hold
// several runs. A catalog is typically wired as the OnClass sink of a
// flipgraph.Controller:
//
//	cat, _ := catalog.Open(dir)
//	defer cat.Close()
//	opts.OnClass = cat.Sink(runID, func(err error) { log.Warn(err) })
package catalog

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"

	"github.com/matzehuels/triangs/pkg/flipgraph"
)

// ErrNotFound is returned by Get for an unknown class.
var ErrNotFound = errors.New("catalog: class not found")

var classPrefix = []byte("class/")

// ClassRecord is one stored symmetry class.
type ClassRecord struct {
	RunID        string  `json:"runid"`
	ID           int     `json:"id"`
	Simplices    [][]int `json:"simplices"`
	OrbitSize    int     `json:"orbit"`
	ReportedSize int     `json:"reported"`
	Stabilizer   int     `json:"stabilizer"`
}

// Catalog is a badger-backed class store. It is safe for concurrent use.
type Catalog struct {
	db *badger.DB
}

// Open opens or creates the catalog in dir. An empty dir opens an
// in-memory catalog.
func Open(dir string) (*Catalog, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.MetricsEnabled = false
	opts.DetectConflicts = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog %q", dir)
	}
	return &Catalog{db: db}, nil
}

// Close flushes and closes the database.
func (c *Catalog) Close() error {
	return errors.Wrap(c.db.Close(), "close catalog")
}

func recordKey(runID string, id int) []byte {
	key := make([]byte, 0, len(classPrefix)+len(runID)+9)
	key = append(key, classPrefix...)
	key = append(key, runID...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func runPrefix(runID string) []byte {
	if runID == "" {
		return classPrefix
	}
	return append(append(bytes.Clone(classPrefix), runID...), '/')
}

// Put stores rec, replacing an earlier record with the same run and ID.
func (c *Catalog) Put(rec ClassRecord) error {
	if strings.ContainsRune(rec.RunID, '/') {
		return errors.Errorf("catalog: run id %q contains '/'", rec.RunID)
	}
	val, err := sonnet.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode class")
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.RunID, rec.ID), val)
	})
	return errors.Wrapf(err, "store class %d", rec.ID)
}

// Get returns the class with the given run and ID.
func (c *Catalog) Get(runID string, id int) (ClassRecord, error) {
	var rec ClassRecord
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(runID, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return sonnet.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return rec, ErrNotFound
	}
	return rec, errors.Wrapf(err, "load class %d", id)
}

// List returns the classes of runID, or of every run when runID is empty,
// ordered by class ID and then run ID.
func (c *Catalog) List(runID string) ([]ClassRecord, error) {
	sorted := treemap.NewWith(compareRecords)
	prefix := runPrefix(runID)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec ClassRecord
			if err := it.Item().Value(func(val []byte) error {
				return sonnet.Unmarshal(val, &rec)
			}); err != nil {
				return errors.Wrapf(err, "decode %q", it.Item().Key())
			}
			sorted.Put(rec, struct{}{})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list classes")
	}
	out := make([]ClassRecord, 0, sorted.Size())
	for _, k := range sorted.Keys() {
		out = append(out, k.(ClassRecord))
	}
	return out, nil
}

// Count returns the number of stored classes of runID, or of every run when
// runID is empty.
func (c *Catalog) Count(runID string) (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: runPrefix(runID)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, errors.Wrap(err, "count classes")
}

// Sink returns an OnClass callback storing every counted class under runID.
// Store errors are passed to onErr, which may be nil.
func (c *Catalog) Sink(runID string, onErr func(error)) func(flipgraph.ClassInfo) {
	return func(ci flipgraph.ClassInfo) {
		err := c.Put(ClassRecord{
			RunID:        runID,
			ID:           ci.ID,
			Simplices:    ci.Representative.PointLists(),
			OrbitSize:    ci.OrbitSize,
			ReportedSize: ci.ReportedSize,
			Stabilizer:   ci.Stabilizer,
		})
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
}

func compareRecords(a, b any) int {
	ra, rb := a.(ClassRecord), b.(ClassRecord)
	switch {
	case ra.ID != rb.ID:
		if ra.ID < rb.ID {
			return -1
		}
		return 1
	default:
		return strings.Compare(ra.RunID, rb.RunID)
	}
}
