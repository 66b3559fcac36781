package fedora

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long a cached verdict stays valid.
const DefaultTTL = 24 * time.Hour

// Store is a persistent cache of crate verdicts, held as a single JSON
// document with an "entries" root key. It is loaded once, mutated in
// memory during a run, and flushed back once at the end. The store is an
// optimization, not a correctness requirement: load failures degrade to
// an empty store and flush failures are reported to the caller as
// ordinary errors to be logged as warnings.
type Store struct {
	path    string
	ttl     time.Duration
	now     func() time.Time
	entries map[string]storeEntry
}

type storeEntry struct {
	Exists    bool     `json:"exists"`
	Message   string   `json:"message"`
	Packages  []string `json:"packages"`
	Timestamp int64    `json:"timestamp"`
}

type storeDocument struct {
	Entries map[string]storeEntry `json:"entries"`
}

// NewStore creates a store backed by the file at path. If ttl is zero,
// DefaultTTL is used. The file is read immediately; a missing, malformed,
// or structurally wrong document yields an empty store, never an error.
func NewStore(path string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]storeEntry),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Entries == nil {
		return
	}
	s.entries = doc.Entries
}

// Get returns the cached verdict for a crate. The second result is false
// both when the crate was never cached and when the entry has outlived
// the TTL; callers treat the two identically and re-query. Expired
// entries are left in place to be overwritten by the next Put.
func (s *Store) Get(crate string) (Verdict, bool) {
	entry, ok := s.entries[crate]
	if !ok {
		return Verdict{}, false
	}
	age := s.now().Unix() - entry.Timestamp
	if age > int64(s.ttl.Seconds()) {
		return Verdict{}, false
	}
	return Verdict{Exists: entry.Exists, Message: entry.Message, Packages: entry.Packages}, true
}

// Put records a verdict with the current timestamp.
func (s *Store) Put(crate string, v Verdict) {
	s.entries[crate] = storeEntry{
		Exists:    v.Exists,
		Message:   v.Message,
		Packages:  v.Packages,
		Timestamp: s.now().Unix(),
	}
}

// Flush writes the full store back to disk.
func (s *Store) Flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(storeDocument{Entries: s.entries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Clear discards all entries and persists the empty state immediately.
func (s *Store) Clear() error {
	s.entries = make(map[string]storeEntry)
	return s.Flush()
}

// Len returns the number of entries, expired ones included.
func (s *Store) Len() int { return len(s.entries) }

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }
