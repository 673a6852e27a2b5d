// Package cache provides caching for rendered cluster icons and viewport
// responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

// Config contains cache configuration.
type Config struct {
	IconCacheSizeMB int
	IconTTL         time.Duration
	QueryCacheSize  int
}

// Manager manages the icon and viewport caches.
type Manager struct {
	iconCache  *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder

	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.IconTTL <= 0 {
		cfg.IconTTL = 10 * time.Minute
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = 1024
	}

	iconCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.IconTTL,
		CleanWindow:        cfg.IconTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       16 * 1024, // icons are small PNGs
		HardMaxCacheSize:   cfg.IconCacheSizeMB,
		Verbose:            false,
	}

	iconCache, err := bigcache.New(context.Background(), iconCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		iconCache.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		iconCache.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		iconCache.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Manager{
		iconCache:  iconCache,
		queryCache: queryCache,
		encoder:    encoder,
		decoder:    decoder,
	}, nil
}

// GetIcon retrieves a rendered icon from cache.
func (m *Manager) GetIcon(key string) ([]byte, bool) {
	data, err := m.iconCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetIcon stores a rendered icon in cache.
func (m *Manager) SetIcon(key string, data []byte) error {
	return m.iconCache.Set(key, data)
}

// GetViewport retrieves a viewport response. Entries are stored
// compressed.
func (m *Manager) GetViewport(key string) ([]byte, bool) {
	compressed, ok := m.queryCache.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	data, err := m.decoder.DecodeAll(compressed, nil)
	if err != nil {
		log.Printf("[Cache] Dropping corrupt viewport entry %s: %v", key, err)
		m.queryCache.Remove(key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return data, true
}

// SetViewport stores a viewport response.
func (m *Manager) SetViewport(key string, data []byte) {
	m.queryCache.Add(key, m.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)))
}

// PurgeSession drops every viewport response of a session.
func (m *Manager) PurgeSession(session string) {
	prefix := "vp:" + session + ":"
	for _, key := range m.queryCache.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			m.queryCache.Remove(key)
		}
	}
}

// IconKey generates a cache key for a cluster icon.
func IconKey(styleIndex int, text, colormap string) string {
	return fmt.Sprintf("icon:%d:%s:%s", styleIndex, colormap, text)
}

// ViewportKey generates a cache key for a viewport response. The session
// version changes on every mutation, so stale responses are never hit.
// Coordinates are rounded to 1e-7 degrees.
func ViewportKey(session string, version uint64, lng, lat, zoom float64, width, height int) string {
	base := fmt.Sprintf("vp:%s:%d", session, version)
	h := sha256.New()
	fmt.Fprintf(h, "%d/%d/%g/%d/%d", round7(lng), round7(lat), zoom, width, height)
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

func round7(v float64) int64 {
	return int64(math.Round(v * 1e7))
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"icon_cache_len":  m.iconCache.Len(),
		"icon_cache_cap":  m.iconCache.Capacity(),
		"query_cache_len": m.queryCache.Len(),
		"query_hits":      m.hits.Load(),
		"query_misses":    m.misses.Load(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	m.encoder.Close()
	m.decoder.Close()
	return m.iconCache.Close()
}
