package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"smooday/quickcheck-api/nutrition"
)

// documentStore persists raw quick-check documents by key. Get reports
// found=false for a key that was never written.
type documentStore interface {
	Get(ctx context.Context, key string) (doc []byte, found bool, err error)
	Set(ctx context.Context, key string, doc []byte) error
}

// newDocumentStore picks the backend named by cfg.StoreDriver.
func newDocumentStore(ctx context.Context, cfg config) (documentStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		return newMemoryStore(), nil
	case "file":
		return newFileStore(cfg.DataDir)
	case "postgres":
		pool, err := getDBPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		return newPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

/* ─── Memory ─────────────────────────────────────────────────────────── */

type memoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string][]byte)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), doc...)
	return nil
}

/* ─── File ───────────────────────────────────────────────────────────── */

// fileStore keeps one JSON file per key under dir.
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// path maps a key to a file name. Keys contain ':' which is not portable.
func (s *fileStore) path(key string) string {
	name := hex.EncodeToString([]byte(key))
	return filepath.Join(s.dir, name+".json")
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	doc, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read document: %w", err)
	}
	return doc, true, nil
}

// Set writes to a temp file and renames it so readers never see a partial
// document.
func (s *fileStore) Set(_ context.Context, key string, doc []byte) error {
	tmp, err := os.CreateTemp(s.dir, "doc-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}

/* ─── Session cache ──────────────────────────────────────────────────── */

// sessionCache sits in front of a documentStore. A document whose backend
// write failed is kept in memory until a later write for the same key
// succeeds, so a failing backend never loses state for the lifetime of the
// process. Backend errors are logged and counted, then ignored.
type sessionCache struct {
	backend documentStore
	log     *zap.Logger

	mu      sync.Mutex
	pending map[string]nutrition.DailyLog
}

// maxPendingDocs bounds the documents held during a backend outage.
const maxPendingDocs = 10000

func newSessionCache(backend documentStore, log *zap.Logger) *sessionCache {
	return &sessionCache{
		backend: backend,
		log:     log,
		pending: make(map[string]nutrition.DailyLog),
	}
}

// Load returns the document for key, or the defaults when it is absent or
// unreadable.
func (c *sessionCache) Load(ctx context.Context, key string) nutrition.DailyLog {
	c.mu.Lock()
	doc, ok := c.pending[key]
	c.mu.Unlock()
	if ok {
		return cloneDailyLog(doc)
	}

	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("[store] load failed, using defaults", zap.Error(err))
		recordStoreFailure("get")
	}
	if !found {
		return nutrition.DefaultDailyLog()
	}
	return nutrition.DecodeDailyLog(raw)
}

// Save writes doc through to the backend. On failure the document is held
// in memory; on success any held copy is dropped.
func (c *sessionCache) Save(ctx context.Context, key string, doc nutrition.DailyLog) {
	raw, err := json.Marshal(doc)
	if err != nil {
		c.log.Warn("[store] marshal failed", zap.Error(err))
		recordStoreFailure("marshal")
		c.hold(key, doc)
		return
	}
	if err := c.backend.Set(ctx, key, raw); err != nil {
		c.log.Warn("[store] save failed, kept in session", zap.Error(err))
		recordStoreFailure("set")
		c.hold(key, doc)
		return
	}
	documentWritesCounter.Inc()

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *sessionCache) hold(key string, doc nutrition.DailyLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[key]; !ok && len(c.pending) >= maxPendingDocs {
		for evict := range c.pending {
			delete(c.pending, evict)
			c.log.Warn("[store] session cache full, dropped unsaved document")
			break
		}
	}
	c.pending[key] = cloneDailyLog(doc)
}

func (c *sessionCache) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// cloneDailyLog copies the meal slice so cached documents are never aliased
// by handlers.
func cloneDailyLog(d nutrition.DailyLog) nutrition.DailyLog {
	d.Meals = append([]nutrition.Meal(nil), d.Meals...)
	return d
}
