// Package storage implements the hybrid probability-tree store: an
// in-memory LRU fronts a KV stratum (sqlite) with a JSON-file fallback.
// Serialised trees are gzip-compressed when compression is enabled; KV
// values are base64-encoded and JSON fallback values hex-encoded.
package storage

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"

	"github.com/cognicore/wordtree/internal/internalerr"
	"github.com/cognicore/wordtree/pkg/wordtree/config"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
)

// jsonEntry is the per-anchor record in the JSON fallback file.
type jsonEntry struct {
	Serialized string       `json:"serialized"`
	Metadata   jsonMetadata `json:"metadata"`
}

type jsonMetadata struct {
	SizeBytes  int    `json:"size_bytes"`
	Compressed bool   `json:"compressed"`
	StoredAt   string `json:"stored_at"`
}

// Store is the hybrid LRU -> KV -> JSON probability-tree store. Which
// strata are active is governed by mode.
type Store struct {
	mode        config.StorageMode
	compression bool
	lruCache    *lru.Cache[string, *tree.WordProbabilityTree]

	db *sql.DB

	jsonPath string
	jsonMu   sync.Mutex
}

// Open initialises a Store from opts. KV is backed by opts.SQLitePath when
// mode includes kv/hybrid; the JSON fallback file at opts.JSONFilePath is
// created empty if missing when mode includes json/hybrid.
func Open(opts config.Options) (*Store, error) {
	cache, err := lru.New[string, *tree.WordProbabilityTree](opts.LRUCapacity)
	if err != nil {
		return nil, fmt.Errorf("storage: %w: building LRU: %v", internalerr.ErrStorageFault, err)
	}

	s := &Store{
		mode:        opts.StorageMode,
		compression: opts.Compression,
		lruCache:    cache,
		jsonPath:    opts.JSONFilePath,
	}

	if s.usesKV() {
		db, err := sql.Open("sqlite", opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("storage: %w: opening sqlite: %v", internalerr.ErrStorageFault, err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %w: enabling WAL: %v", internalerr.ErrStorageFault, err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %w: enabling foreign keys: %v", internalerr.ErrStorageFault, err)
		}
		if err := initSchema(db); err != nil {
			db.Close()
			return nil, err
		}
		s.db = db
	}

	if s.usesJSON() {
		if _, err := os.Stat(s.jsonPath); os.IsNotExist(err) {
			if err := os.WriteFile(s.jsonPath, []byte("{}"), 0o644); err != nil {
				return nil, fmt.Errorf("storage: %w: creating json fallback: %v", internalerr.ErrStorageFault, err)
			}
		}
	}

	return s, nil
}

func (s *Store) usesKV() bool {
	return s.mode == config.StorageKV || s.mode == config.StorageHybrid
}

func (s *Store) usesJSON() bool {
	return s.mode == config.StorageJSON || s.mode == config.StorageHybrid
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS tree_store (
	anchor TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("storage: %w: initializing schema: %v", internalerr.ErrStorageFault, err)
	}
	return nil
}

// Close releases the KV connection, if one is open.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Has reports whether anchor has a stored tree in any active stratum.
func (s *Store) Has(anchor string) (bool, error) {
	if _, ok := s.lruCache.Get(anchor); ok {
		return true, nil
	}
	if s.usesKV() {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM tree_store WHERE anchor = ?`, anchor).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("storage: %w: querying kv: %v", internalerr.ErrStorageFault, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	if s.usesJSON() {
		entries, err := s.readJSONFile()
		if err != nil {
			return false, err
		}
		if _, ok := entries[anchor]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Get retrieves anchor's tree, trying the LRU, then KV, then JSON in order.
// A stratum miss degrades to the next rather than failing outright; only
// complete unavailability across every active stratum returns (nil, false,
// nil).
func (s *Store) Get(anchor string) (*tree.WordProbabilityTree, bool, error) {
	if t, ok := s.lruCache.Get(anchor); ok {
		return t, true, nil
	}

	if s.usesKV() {
		raw, ok, err := s.getKV(anchor)
		if err != nil {
			return nil, false, err
		}
		if ok {
			t, err := s.decodeStored(raw)
			if err != nil {
				return nil, false, err
			}
			s.lruCache.Add(anchor, t)
			return t, true, nil
		}
	}

	if s.usesJSON() {
		entry, ok, err := s.getJSON(anchor)
		if err != nil {
			return nil, false, err
		}
		if ok {
			data, err := hex.DecodeString(entry.Serialized)
			if err != nil {
				return nil, false, fmt.Errorf("storage: %w: decoding hex: %v", internalerr.ErrStorageFault, err)
			}
			if entry.Metadata.Compressed {
				data, err = gunzip(data)
				if err != nil {
					return nil, false, err
				}
			}
			t, err := Deserialize(data)
			if err != nil {
				return nil, false, fmt.Errorf("storage: %w: %v", internalerr.ErrStorageFault, err)
			}
			s.lruCache.Add(anchor, t)
			return t, true, nil
		}
	}

	return nil, false, nil
}

// Put stores t under anchor in every active stratum: the LRU always, KV and
// JSON when enabled (hybrid mode writes both).
func (s *Store) Put(anchor string, t *tree.WordProbabilityTree) error {
	s.lruCache.Add(anchor, t)

	raw := Serialize(t)
	compressed := raw
	if s.compression {
		var err error
		compressed, err = gzipBytes(raw)
		if err != nil {
			return err
		}
	}

	if s.usesKV() {
		encoded := base64.StdEncoding.EncodeToString(compressed)
		if _, err := s.db.Exec(
			`INSERT INTO tree_store (anchor, value) VALUES (?, ?)
			 ON CONFLICT(anchor) DO UPDATE SET value = excluded.value`,
			anchor, encoded,
		); err != nil {
			return fmt.Errorf("storage: %w: writing kv: %v", internalerr.ErrStorageFault, err)
		}
	}

	if s.usesJSON() {
		if err := s.putJSON(anchor, compressed, s.compression); err != nil {
			return err
		}
	}

	return nil
}

// PopulateFromFile bulk-imports trees from a JSON fallback file (same shape
// as the JSON stratum) into the KV stratum, skipping anchors that already
// exist. Returns the number added and the total number of entries seen.
func (s *Store) PopulateFromFile(path string) (added, total int, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return 0, 0, fmt.Errorf("storage: %w: %s", internalerr.ErrResourceMissing, path)
	}

	var entries map[string]jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, 0, fmt.Errorf("storage: %w: parsing %s: %v", internalerr.ErrStorageFault, path, err)
	}

	total = len(entries)
	type job struct {
		anchor string
		entry  jsonEntry
	}
	jobs := make(chan job)
	results := make(chan error)

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- s.populateOne(j.anchor, j.entry)
			}
		}()
	}

	go func() {
		for anchor, entry := range entries {
			jobs <- job{anchor: anchor, entry: entry}
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for err := range results {
		if err == nil {
			added++
		} else if errors.Is(err, errAlreadyPresent) {
			continue
		} else if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return added, total, firstErr
	}
	return added, total, nil
}

// errAlreadyPresent marks an anchor that PopulateFromFile skips because the
// KV stratum already holds it.
var errAlreadyPresent = errors.New("storage: anchor already present")

func (s *Store) populateOne(anchor string, entry jsonEntry) error {
	if !s.usesKV() {
		return fmt.Errorf("storage: populate_from_file requires the kv stratum to be active")
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tree_store WHERE anchor = ?`, anchor).Scan(&count); err != nil {
		return fmt.Errorf("storage: %w: %v", internalerr.ErrStorageFault, err)
	}
	if count > 0 {
		return errAlreadyPresent
	}

	raw, err := hex.DecodeString(entry.Serialized)
	if err != nil {
		return fmt.Errorf("storage: %w: decoding hex for %q: %v", internalerr.ErrStorageFault, anchor, err)
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	if _, err := s.db.Exec(
		`INSERT INTO tree_store (anchor, value) VALUES (?, ?)
		 ON CONFLICT(anchor) DO NOTHING`,
		anchor, encoded,
	); err != nil {
		return fmt.Errorf("storage: %w: %v", internalerr.ErrStorageFault, err)
	}
	return nil
}

func (s *Store) getKV(anchor string) ([]byte, bool, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT value FROM tree_store WHERE anchor = ?`, anchor).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: %w: reading kv: %v", internalerr.ErrStorageFault, err)
	}
	return []byte(encoded), true, nil
}

// decodeStored accepts both the current base64(gzip(binary)) format and the
// legacy raw-JSON {serialized: hex, metadata: {...}} format once stored
// directly as a KV value.
func (s *Store) decodeStored(raw []byte) (*tree.WordProbabilityTree, error) {
	var legacy jsonEntry
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.Serialized != "" {
		data, err := hex.DecodeString(legacy.Serialized)
		if err != nil {
			return nil, fmt.Errorf("storage: %w: decoding legacy hex: %v", internalerr.ErrStorageFault, err)
		}
		if legacy.Metadata.Compressed {
			data, err = gunzip(data)
			if err != nil {
				return nil, err
			}
		}
		t, err := Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("storage: %w: %v", internalerr.ErrStorageFault, err)
		}
		return t, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("storage: %w: decoding base64: %v", internalerr.ErrStorageFault, err)
	}
	if s.compression {
		decoded, err = gunzip(decoded)
		if err != nil {
			return nil, err
		}
	}
	t, err := Deserialize(decoded)
	if err != nil {
		return nil, fmt.Errorf("storage: %w: %v", internalerr.ErrStorageFault, err)
	}
	return t, nil
}

func (s *Store) readJSONFile() (map[string]jsonEntry, error) {
	s.jsonMu.Lock()
	defer s.jsonMu.Unlock()
	return s.readJSONFileLocked()
}

func (s *Store) readJSONFileLocked() (map[string]jsonEntry, error) {
	data, err := os.ReadFile(s.jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]jsonEntry{}, nil
		}
		return nil, fmt.Errorf("storage: %w: reading %s: %v", internalerr.ErrStorageFault, s.jsonPath, err)
	}
	var entries map[string]jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("storage: %w: parsing %s: %v", internalerr.ErrStorageFault, s.jsonPath, err)
	}
	return entries, nil
}

func (s *Store) getJSON(anchor string) (jsonEntry, bool, error) {
	entries, err := s.readJSONFile()
	if err != nil {
		return jsonEntry{}, false, err
	}
	e, ok := entries[anchor]
	return e, ok, nil
}

// putJSON writes anchor's compressed, serialised tree into the JSON
// fallback file under an exclusive lock, so concurrent writers serialise.
func (s *Store) putJSON(anchor string, data []byte, compressed bool) error {
	s.jsonMu.Lock()
	defer s.jsonMu.Unlock()

	entries, err := s.readJSONFileLocked()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]jsonEntry)
	}

	entries[anchor] = jsonEntry{
		Serialized: hex.EncodeToString(data),
		Metadata: jsonMetadata{
			SizeBytes:  len(data),
			Compressed: compressed,
			StoredAt:   ulid.Make().String(),
		},
	}

	out, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("storage: %w: marshaling json fallback: %v", internalerr.ErrStorageFault, err)
	}
	if err := os.WriteFile(s.jsonPath, out, 0o644); err != nil {
		return fmt.Errorf("storage: %w: writing json fallback: %v", internalerr.ErrStorageFault, err)
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("storage: %w: compressing: %v", internalerr.ErrStorageFault, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: %w: closing gzip writer: %v", internalerr.ErrStorageFault, err)
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: %w: opening gzip reader: %v", internalerr.ErrStorageFault, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: %w: decompressing: %v", internalerr.ErrStorageFault, err)
	}
	return out, nil
}
