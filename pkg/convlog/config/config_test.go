package config_test

import (
	"testing"
	"time"

	"github.com/randalmurphal/convlog/pkg/convlog/config"
	"github.com/stretchr/testify/assert"
)

// TestDuration verifies duration extraction with various input types.
func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want time.Duration
	}{
		{"string", map[string]any{"d": "250ms"}, 250 * time.Millisecond},
		{"int seconds", map[string]any{"d": 2}, 2 * time.Second},
		{"float seconds", map[string]any{"d": 0.5}, 500 * time.Millisecond},
		{"invalid string", map[string]any{"d": "soon"}, time.Minute},
		{"missing", nil, time.Minute},
		{"wrong type", map[string]any{"d": true}, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.New(tt.data).Duration("d", time.Minute)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"name":    "alice",
		"count":   3,
		"ratio":   float64(4),
		"half":    1.5,
		"enabled": true,
		"tags":    []any{"a", "b"},
		"mixed":   []any{"a", 1},
		"section": map[string]any{"inner": "yes"},
	})

	assert.Equal(t, "alice", cfg.String("name", "x"))
	assert.Equal(t, "x", cfg.String("count", "x"))
	assert.Equal(t, 3, cfg.Int("count", 0))
	assert.Equal(t, 4, cfg.Int("ratio", 0))
	assert.Equal(t, 7, cfg.Int("half", 7), "fractional floats fall back")
	assert.True(t, cfg.Bool("enabled", false))
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("tags", nil))
	assert.Nil(t, cfg.StringSlice("mixed", nil))
	assert.Equal(t, "yes", cfg.Sub("section").String("inner", ""))
	assert.Empty(t, cfg.Sub("missing").Raw())
	assert.Empty(t, cfg.Sub("name").Raw(), "non-map values give an empty section")
	assert.True(t, cfg.Has("name"))
	assert.False(t, cfg.Has("nope"))
}
