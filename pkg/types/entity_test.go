package types

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"plain", "customer-42", false},
		{"unicode", "café", false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"hash", "a#b", true},
		{"question mark", "a?b", true},
		{"control char", "a\tb", true},
		{"too long", strings.Repeat("k", MaxKeyLength+1), true},
		{"at limit", strings.Repeat("k", MaxKeyLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEntityValidate(t *testing.T) {
	t.Run("accepts supported value types", func(t *testing.T) {
		e := NewEntity("pk", "rk").
			Set("Name", "widget").
			Set("Count", 3).
			Set("Small", int32(2)).
			Set("Price", 9.5).
			Set("Active", true).
			Set("When", time.Now()).
			Set("Blob", []byte{1, 2}).
			Set("ID", uuid.New())
		assert.NoError(t, e.Validate())
	})

	t.Run("rejects system property names", func(t *testing.T) {
		e := NewEntity("pk", "rk").Set(PropTimestamp, "x")
		assert.ErrorIs(t, e.Validate(), ErrInvalidProperty)
	})

	t.Run("rejects unsupported value types", func(t *testing.T) {
		e := NewEntity("pk", "rk").Set("Nested", map[string]any{"a": 1})
		assert.ErrorIs(t, e.Validate(), ErrInvalidProperty)
	})

	t.Run("rejects bad keys", func(t *testing.T) {
		assert.ErrorIs(t, NewEntity("", "rk").Validate(), ErrInvalidKey)
		assert.ErrorIs(t, NewEntity("pk", "r#k").Validate(), ErrInvalidKey)
	})

	t.Run("nil entity", func(t *testing.T) {
		var e *Entity
		assert.ErrorIs(t, e.Validate(), ErrInvalidOperation)
	})
}

func TestNormalizeValue(t *testing.T) {
	v, err := NormalizeValue(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	loc := time.FixedZone("plus2", 2*60*60)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)
	v, err = NormalizeValue(ts)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, v.(time.Time).Location())
	assert.True(t, ts.Equal(v.(time.Time)))
}

func TestEntityClone(t *testing.T) {
	e := NewEntity("pk", "rk").Set("A", "1")
	c := e.Clone()
	c.Set("A", "2")
	got, _ := e.Get("A")
	assert.Equal(t, "1", got)
}
