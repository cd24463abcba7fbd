package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-forms/internal/models"
)

func TestAggregate_SharedLabelCollapses(t *testing.T) {
	segments := []models.Segment{
		{ID: "1", Text: "Hello [Name: Ann, Bob]"},
		{ID: "2", Text: "Bye [Name: Cid] from [Place: home]"},
	}

	fields := Aggregate(segments)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, []string{"Ann", "Bob"}, fields[0].Options)
	assert.Equal(t, "place", fields[1].Name)
}

func TestAggregate_PrefersCachedFields(t *testing.T) {
	cached := []models.FieldDefinition{{Name: "stale", Label: "Stale", Options: []string{"x"}}}
	segments := []models.Segment{
		{ID: "1", Text: "[Fresh: y]", Fields: cached},
		{ID: "2", Text: "[Other: z]"},
	}

	fields := Aggregate(segments)
	require.Len(t, fields, 2)
	assert.Equal(t, "stale", fields[0].Name)
	assert.Equal(t, "other", fields[1].Name)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]models.Segment{{ID: "1"}}))
}

func TestDefaultValues(t *testing.T) {
	fields := Parse("[Style: bold, italic] [Size]")
	got := DefaultValues(fields)
	assert.Equal(t, map[string]string{"style": "bold", "size": "Option 1"}, got)
}

func TestReconcileValues(t *testing.T) {
	fields := Parse("[Style: bold, italic] [Size: S, M]")
	current := map[string]string{
		"style": "italic", // still valid
		"size":  "XL",     // no longer an option
		"gone":  "value",  // field removed
	}

	got := ReconcileValues(fields, current)
	assert.Equal(t, map[string]string{"style": "italic", "size": "S"}, got)
}

func TestFieldCache_Memoizes(t *testing.T) {
	cache := NewFieldCache(0)

	first := cache.Fields("[A: x, y]")
	second := cache.Fields("[A: x, y]")
	assert.Equal(t, first, second)

	hits, misses := cache.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, cache.Len())

	// Callers must not be able to corrupt cached entries.
	first[0].Options[0] = "mutated"
	third := cache.Fields("[A: x, y]")
	assert.Equal(t, "x", third[0].Options[0])
}

func TestFieldCache_Limit(t *testing.T) {
	cache := NewFieldCache(2)
	cache.Fields("[A]")
	cache.Fields("[B]")
	cache.Fields("[C]")
	assert.LessOrEqual(t, cache.Len(), 2)
}

func TestFieldCache_AggregateIgnoresStaleFields(t *testing.T) {
	cache := NewFieldCache(8)
	segments := []models.Segment{{
		ID:     "1",
		Text:   "[Fresh: y]",
		Fields: []models.FieldDefinition{{Name: "stale", Options: []string{"x"}}},
	}}

	fields := cache.Aggregate(segments)
	require.Len(t, fields, 1)
	assert.Equal(t, "fresh", fields[0].Name)
}

func TestFieldCache_ConcurrentAccess(t *testing.T) {
	cache := NewFieldCache(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cache.Fields("[Tone: calm, loud]")
			}
		}()
	}
	wg.Wait()

	hits, misses := cache.Stats()
	assert.Equal(t, 400, hits+misses)
}
