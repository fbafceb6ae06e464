// Package cache provides the context-aware retrieval result cache.
//
// A ResultCache has a global tier shared by all sessions of a tenant and a
// small per-session tier. Both expire entries after a TTL and evict the entry
// with the oldest (timestamp, access count) pair when full. An optional
// shared Store (Redis) sits behind the global tier so replicas can reuse
// each other's results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/textnorm"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// Defaults.
const (
	DefaultTTL        = 1800 * time.Second
	DefaultMaxSize    = 1000
	DefaultSessionMax = 50
)

// Tier names the level that answered a lookup.
type Tier string

const (
	TierNone    Tier = ""
	TierSession Tier = "session"
	TierGlobal  Tier = "global"
	TierShared  Tier = "shared"
)

// Entry is a cached retrieval result.
type Entry struct {
	Key         string
	Data        []model.Product
	Timestamp   time.Time
	AccessCount int
	ContextHash string
	TTL         time.Duration
	// plain is set when the key carries no features or color.
	plain bool
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// stale reports whether a refined entry was cached under a different
// conversation than hash. Plain repeated queries are never stale.
func (e *Entry) stale(hash string) bool {
	return e.ContextHash != "" && hash != "" && e.ContextHash != hash && !e.plain
}

// sharedEntry is the value written to the shared store.
type sharedEntry struct {
	Data        []model.Product `json:"data"`
	ContextHash string          `json:"context_hash,omitempty"`
	Plain       bool            `json:"plain,omitempty"`
}

// Lookup identifies a retrieval for caching purposes.
type Lookup struct {
	Query     string
	SessionID string
	Features  []string
	Color     string
	// History holds the session's past messages, oldest first.
	History []string
}

// Options configures a ResultCache.
type Options struct {
	TTL        time.Duration
	MaxSize    int
	SessionMax int
	// Namespace prefixes keys in the shared store, usually the tenant id.
	Namespace string
	Store     Store
	Logger    *logger.Logger
	Now       func() time.Time
}

// Stats are cumulative cache counters.
type Stats struct {
	Size          int     `json:"size"`
	MaxSize       int     `json:"max_size"`
	Sessions      int     `json:"sessions"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	TotalRequests int64   `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
}

// ResultCache is safe for concurrent use.
type ResultCache struct {
	mu       sync.Mutex
	global   map[string]*Entry
	sessions map[string]map[string]*Entry

	ttl        time.Duration
	maxSize    int
	sessionMax int
	namespace  string
	store      Store
	log        *logger.Logger
	now        func() time.Time

	hits, misses, evictions, requests int64
}

// New creates a ResultCache. Zero options take the package defaults.
func New(opts Options) *ResultCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.SessionMax <= 0 {
		opts.SessionMax = DefaultSessionMax
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ResultCache{
		global:     make(map[string]*Entry),
		sessions:   make(map[string]map[string]*Entry),
		ttl:        opts.TTL,
		maxSize:    opts.MaxSize,
		sessionMax: opts.SessionMax,
		namespace:  opts.Namespace,
		store:      opts.Store,
		log:        opts.Logger,
		now:        opts.Now,
	}
}

// Key builds the cache key: normalized query, sorted features and color.
func Key(query string, features []string, color string) string {
	parts := []string{textnorm.Normalize(query)}
	if len(features) > 0 {
		fs := make([]string, 0, len(features))
		for _, f := range features {
			if f = textnorm.Normalize(f); f != "" {
				fs = append(fs, f)
			}
		}
		sort.Strings(fs)
		if len(fs) > 0 {
			parts = append(parts, strings.Join(fs, "_"))
		}
	}
	if c := textnorm.Normalize(color); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, "_")
}

// ContextHash digests the last three history messages. Empty history yields "".
func ContextHash(history []string) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	b, _ := json.Marshal(history)
	return fmt.Sprintf("%016x", xxhash.Sum64(b))[:8]
}

// Get returns cached data for the lookup, preferring the session tier.
func (c *ResultCache) Get(ctx context.Context, l Lookup) ([]model.Product, Tier, bool) {
	key := Key(l.Query, l.Features, l.Color)
	hash := ContextHash(l.History)
	now := c.now()

	c.mu.Lock()
	c.requests++
	if l.SessionID != "" {
		if sc, ok := c.sessions[l.SessionID]; ok {
			if e, ok := sc[key]; ok {
				if e.expired(now) {
					delete(sc, key)
				} else {
					e.AccessCount++
					e.Timestamp = now
					c.hits++
					data := e.Data
					c.mu.Unlock()
					c.log.Debug("session cache hit", zap.String("key", key))
					return data, TierSession, true
				}
			}
		}
	}

	if e, ok := c.global[key]; ok {
		switch {
		case e.expired(now):
			delete(c.global, key)
		case e.stale(hash):
			// The conversation moved on and the entry is a refined query.
		default:
			e.AccessCount++
			e.Timestamp = now
			c.hits++
			data := e.Data
			c.mu.Unlock()
			c.log.Debug("cache hit", zap.String("key", key))
			return data, TierGlobal, true
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		if se, ok := c.getShared(ctx, key); ok {
			shared := Entry{ContextHash: se.ContextHash, plain: se.Plain}
			if !shared.stale(hash) {
				c.mu.Lock()
				c.hits++
				e := c.putLocked(c.global, key, se.Data, se.ContextHash, c.maxSize, now)
				e.plain = se.Plain
				c.mu.Unlock()
				return se.Data, TierShared, true
			}
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, TierNone, false
}

// Put stores data in the session tier (when a session is given), the global
// tier and the shared store.
func (c *ResultCache) Put(ctx context.Context, l Lookup, data []model.Product) {
	key := Key(l.Query, l.Features, l.Color)
	hash := ContextHash(l.History)
	now := c.now()

	c.mu.Lock()
	if l.SessionID != "" {
		sc, ok := c.sessions[l.SessionID]
		if !ok {
			sc = make(map[string]*Entry)
			c.sessions[l.SessionID] = sc
		}
		c.putLocked(sc, key, data, hash, c.sessionMax, now)
	}
	plain := len(l.Features) == 0 && textnorm.Normalize(l.Color) == ""
	e := c.putLocked(c.global, key, data, hash, c.maxSize, now)
	e.plain = plain
	c.mu.Unlock()

	if c.store != nil {
		c.putShared(ctx, key, sharedEntry{Data: data, ContextHash: hash, Plain: plain})
	}
}

func (c *ResultCache) putLocked(tier map[string]*Entry, key string, data []model.Product, hash string, limit int, now time.Time) *Entry {
	if _, exists := tier[key]; !exists && len(tier) >= limit {
		c.evictLocked(tier)
	}
	e := &Entry{
		Key:         key,
		Data:        data,
		Timestamp:   now,
		AccessCount: 1,
		ContextHash: hash,
		TTL:         c.ttl,
	}
	tier[key] = e
	return e
}

// evictLocked drops the entry with the smallest (timestamp, access count).
func (c *ResultCache) evictLocked(tier map[string]*Entry) {
	var victim *Entry
	for _, e := range tier {
		if victim == nil ||
			e.Timestamp.Before(victim.Timestamp) ||
			(e.Timestamp.Equal(victim.Timestamp) && e.AccessCount < victim.AccessCount) {
			victim = e
		}
	}
	if victim != nil {
		delete(tier, victim.Key)
		c.evictions++
	}
}

// InvalidatePattern removes every key containing pattern from all tiers.
// The pattern "*" clears the cache. It returns the number of global entries
// removed.
func (c *ResultCache) InvalidatePattern(ctx context.Context, pattern string) int {
	all := pattern == "*"
	needle := textnorm.Normalize(pattern)

	c.mu.Lock()
	removed := 0
	for key := range c.global {
		if all || strings.Contains(key, needle) {
			delete(c.global, key)
			removed++
		}
	}
	for id, sc := range c.sessions {
		for key := range sc {
			if all || strings.Contains(key, needle) {
				delete(sc, key)
			}
		}
		if len(sc) == 0 {
			delete(c.sessions, id)
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		n, err := c.store.DeleteMatching(ctx, c.sharedKey(""), patternOrEmpty(pattern))
		if err != nil {
			c.log.Warn("shared cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		} else {
			c.log.Debug("shared cache invalidated", zap.Int("removed", n))
		}
	}

	c.log.Info("cache invalidated", zap.String("pattern", pattern), zap.Int("removed", removed))
	return removed
}

func patternOrEmpty(p string) string {
	if p == "*" {
		return ""
	}
	return textnorm.Normalize(p)
}

// ClearSession drops a session's tier.
func (c *ResultCache) ClearSession(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// CleanupExpiredSessions drops session tiers whose newest entry is older than
// maxAge and returns how many were removed.
func (c *ResultCache) CleanupExpiredSessions(maxAge time.Duration) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, sc := range c.sessions {
		var newest time.Time
		for _, e := range sc {
			if e.Timestamp.After(newest) {
				newest = e.Timestamp
			}
		}
		if len(sc) == 0 || now.Sub(newest) > maxAge {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// Len is the number of global entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.global)
}

// SessionLen is the number of entries in a session tier.
func (c *ResultCache) SessionLen(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions[sessionID])
}

// Contains reports whether key is present in the global tier.
func (c *ResultCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.global[key]
	return ok
}

// Stats returns a snapshot of the counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Size:          len(c.global),
		MaxSize:       c.maxSize,
		Sessions:      len(c.sessions),
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		TotalRequests: c.requests,
	}
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests)
	}
	return s
}

func (c *ResultCache) sharedKey(key string) string {
	return c.namespace + ":" + key
}

func (c *ResultCache) getShared(ctx context.Context, key string) (sharedEntry, bool) {
	raw, err := c.store.Get(ctx, c.sharedKey(key))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("shared cache get failed", zap.String("key", key), zap.Error(err))
		}
		return sharedEntry{}, false
	}
	var se sharedEntry
	if err := json.Unmarshal(raw, &se); err != nil {
		c.log.Warn("shared cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return sharedEntry{}, false
	}
	return se, true
}

func (c *ResultCache) putShared(ctx context.Context, key string, se sharedEntry) {
	raw, err := json.Marshal(se)
	if err != nil {
		c.log.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.sharedKey(key), raw, c.ttl); err != nil {
		c.log.Warn("shared cache set failed", zap.String("key", key), zap.Error(err))
	}
}
