package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/dpshade/pocket-forms/internal/models"
)

// DefaultCacheSize bounds the number of distinct texts kept by a FieldCache
const DefaultCacheSize = 512

// FieldCache memoizes Parse results keyed by a hash of the segment text
type FieldCache struct {
	mu      sync.RWMutex
	entries map[string][]models.FieldDefinition
	limit   int
	hits    int
	misses  int
}

// NewFieldCache creates a cache holding at most limit entries.
// A non-positive limit uses DefaultCacheSize.
func NewFieldCache(limit int) *FieldCache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &FieldCache{
		entries: make(map[string][]models.FieldDefinition),
		limit:   limit,
	}
}

// Fields returns the parsed fields for text, parsing at most once per distinct text
func (c *FieldCache) Fields(text string) []models.FieldDefinition {
	key := calculateHash(text)

	c.mu.RLock()
	fields, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return cloneFields(fields)
	}

	fields = Parse(text)

	c.mu.Lock()
	c.misses++
	if len(c.entries) >= c.limit {
		// Segment texts churn on every keystroke; start over rather than track recency.
		c.entries = make(map[string][]models.FieldDefinition)
	}
	c.entries[key] = fields
	c.mu.Unlock()

	return cloneFields(fields)
}

// Aggregate is Aggregate backed by the cache. Cached segment Fields are ignored
// so the result always reflects the current text.
func (c *FieldCache) Aggregate(segments []models.Segment) []models.FieldDefinition {
	fresh := make([]models.Segment, len(segments))
	for i, s := range segments {
		fresh[i] = models.Segment{ID: s.ID, Name: s.Name, Text: s.Text}
	}
	return aggregate(fresh, c.Fields)
}

// Stats returns the number of cache hits and misses
func (c *FieldCache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached texts
func (c *FieldCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func calculateHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneFields(fields []models.FieldDefinition) []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(fields))
	for i, f := range fields {
		f.Options = append([]string(nil), f.Options...)
		out[i] = f
	}
	return out
}
