package fetch

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Store is the content cache: raw response bytes keyed by a stable name.
// Entries are written once and never invalidated; staleness is an accepted
// tradeoff of this pipeline.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// DiskStore keeps one file per cache entry under a single directory. Writes
// are whole-file replaces; the store assumes a single process.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *DiskStore) Put(key string, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, key), data, 0o644)
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	entries map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{entries: map[string][]byte{}}
}

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	data, ok := s.entries[key]
	return data, ok, nil
}

func (s *MemStore) Put(key string, data []byte) error {
	s.entries[key] = data
	return nil
}

func (s *MemStore) Len() int { return len(s.entries) }

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ProdviewID extracts the stable per-listing token from a product URL path
// (the trailing "prodview-..." segment).
func ProdviewID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", false
	}
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	if !strings.HasPrefix(last, "prodview-") {
		return "", false
	}
	return last, true
}

// CacheKey names a cache entry: the prodview id when the URL carries one, else
// a short hash of the full URL. Same-entity URLs collide on purpose.
func CacheKey(kind, rawURL string) string {
	name, ok := ProdviewID(rawURL)
	if !ok {
		sum := sha1.Sum([]byte(rawURL))
		name = hex.EncodeToString(sum[:])[:16]
	}
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if len(name) > 120 {
		name = name[:120]
	}
	return kind + "__" + name + ".html"
}
