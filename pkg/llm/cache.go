package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is the on-disk response cache. Entries live one per file at
// <dir>/<sanitized model name>/<hash>.json. The cached value is a pure
// function of the canonical request, so concurrent writers to the same key
// are tolerated.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// cacheEntry is the on-disk envelope.
type cacheEntry struct {
	Key       string    `json:"key"`
	Value     Response  `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCache creates a cache rooted at dir. An empty dir disables caching;
// Get then always misses and Put is a no-op.
func NewCache(dir string, logger *slog.Logger) *Cache {
	return &Cache{dir: dir, logger: logger.With("component", "llm_cache")}
}

// Enabled reports whether the cache has a backing directory.
func (c *Cache) Enabled() bool {
	return c.dir != ""
}

// Key computes the stable cache key for a request: the hex sha256 of the
// canonical JSON encoding, which includes the provider id, model, messages,
// sampling parameters and response format.
func (c *Cache) Key(req Request) string {
	data, err := json.Marshal(req)
	if err != nil {
		// Request is plain structs and strings; this cannot happen in
		// practice, but an unkeyable request must never collide.
		data = fmt.Appendf(nil, "unkeyable:%v", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get looks up a cached response. Corrupt or key-mismatched entries are
// treated as misses; parse errors never reach the caller.
func (c *Cache) Get(req Request) (Response, bool) {
	if !c.Enabled() {
		return Response{}, false
	}
	key := c.Key(req)
	data, err := os.ReadFile(c.path(req.Model.Name, key))
	if err != nil {
		return Response{}, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", "key", key, "error", err)
		return Response{}, false
	}
	if entry.Key != key {
		c.logger.Warn("Discarding cache entry with mismatched key", "key", key, "entry_key", entry.Key)
		return Response{}, false
	}
	return entry.Value, true
}

// Put stores a response. Writes are best-effort (temp file then rename); a
// failed write is logged and the response still flows to the caller.
func (c *Cache) Put(req Request, resp Response) {
	if !c.Enabled() {
		return
	}
	key := c.Key(req)
	path := c.path(req.Model.Name, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Warn("Failed to create cache directory", "path", filepath.Dir(path), "error", err)
		return
	}

	entry := cacheEntry{Key: key, Value: resp, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+key+"-*")
	if err != nil {
		c.logger.Warn("Failed to create cache temp file", "key", key, "error", err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		c.logger.Warn("Failed to write cache entry", "key", key, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		c.logger.Warn("Failed to close cache temp file", "key", key, "error", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		c.logger.Warn("Failed to publish cache entry", "key", key, "error", err)
	}
}

func (c *Cache) path(modelName, key string) string {
	return filepath.Join(c.dir, sanitizeModelName(modelName), key+".json")
}

// sanitizeModelName maps a model name onto a safe directory name.
func sanitizeModelName(name string) string {
	if name == "" {
		return "default"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
