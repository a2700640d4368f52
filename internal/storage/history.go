package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	historyBucket     = "history"
	defaultMaxEntries = 1000
)

// ErrEntryNotFound is returned for an unknown history ID
var ErrEntryNotFound = errors.New("history entry not found")

// Outcome is how an invocation ended
type Outcome string

const (
	OutcomeExecuted  Outcome = "executed"
	OutcomeCopied    Outcome = "copied"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePrinted   Outcome = "printed"
)

// Entry is one recorded invocation
type Entry struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Query       string    `json:"query"`
	Command     string    `json:"command"`
	Safe        bool      `json:"safe"`
	Explanation string    `json:"explanation,omitempty"`
	Style       string    `json:"style"`
	Source      string    `json:"source"`
	Outcome     Outcome   `json:"outcome"`
	ExitCode    int       `json:"exit_code"`
}

// History stores entries in a bbolt file. Keys are time-ordered UUIDs, so a
// cursor walks entries oldest to newest.
type History struct {
	db         *bbolt.DB
	maxEntries int
	logger     *zap.Logger
}

// HistoryOptions configures OpenHistory
type HistoryOptions struct {
	// MaxEntries bounds the store; the oldest entries are dropped first.
	MaxEntries int
	Logger     *zap.Logger
}

// OpenHistory opens or creates the history file at path
func OpenHistory(path string, opts HistoryOptions) (*History, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	opts.Logger.Debug("history opened", zap.String("path", path))
	return &History{db: db, maxEntries: opts.MaxEntries, logger: opts.Logger}, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// HistoryFile records entries without keeping the store open. Each call
// opens the file, writes and closes it again, so the file lock is held only
// for the write itself.
type HistoryFile struct {
	path string
	opts HistoryOptions
}

// NewHistoryFile returns a recorder for the history file at path
func NewHistoryFile(path string, opts HistoryOptions) *HistoryFile {
	return &HistoryFile{path: path, opts: opts}
}

// Save stores e
func (f *HistoryFile) Save(e *Entry) error {
	return f.update(func(h *History) error { return h.Save(e) })
}

// SetExitCode records the exit code of an executed entry
func (f *HistoryFile) SetExitCode(id string, code int) error {
	return f.update(func(h *History) error { return h.SetExitCode(id, code) })
}

func (f *HistoryFile) update(fn func(h *History) error) (err error) {
	h, err := OpenHistory(f.path, f.opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(h)
}

// Save stores e, assigning its ID and time when unset, and drops the oldest
// entries beyond the limit.
func (h *History) Save(e *Entry) error {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entry id: %w", err)
		}
		e.ID = id.String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		if err := b.Put([]byte(e.ID), data); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}
		return h.prune(b)
	})
}

func (h *History) prune(b *bbolt.Bucket) error {
	c := b.Cursor()
	count := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - h.maxEntries
	if excess <= 0 {
		return nil
	}

	var stale [][]byte
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("failed to prune entry: %w", err)
		}
	}
	h.logger.Debug("pruned history", zap.Int("removed", len(stale)))
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (h *History) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := h.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(historyBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				h.logger.Warn("skipping corrupt history entry", zap.ByteString("id", k), zap.Error(err))
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id
func (h *History) Get(id string) (Entry, error) {
	var e Entry
	err := h.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(historyBucket)).Get([]byte(id))
		if v == nil {
			return ErrEntryNotFound
		}
		return json.Unmarshal(v, &e)
	})
	return e, err
}

// SetExitCode records the exit status of an executed entry
func (h *History) SetExitCode(id string, code int) error {
	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return ErrEntryNotFound
		}

		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("failed to decode entry: %w", err)
		}
		e.ExitCode = code

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		return b.Put([]byte(id), data)
	})
}

// Delete removes the entry with id
func (h *History) Delete(id string) error {
	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		if b.Get([]byte(id)) == nil {
			return ErrEntryNotFound
		}
		return b.Delete([]byte(id))
	})
}
