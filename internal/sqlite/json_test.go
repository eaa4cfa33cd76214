package sqlite

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func TestProperties_RoundTrip(t *testing.T) {
	when := time.Date(2026, 10, 18, 12, 0, 0, 123, time.FixedZone("x", 3600))
	id := uuid.New()
	in := map[string]any{
		"S": "text",
		"B": false,
		"I": int32(-7),
		"F": float32(1.5),
		"T": when,
		"X": []byte{0, 1, 2},
		"G": id,
	}

	data, err := marshalProperties(in)
	require.NoError(t, err)

	out, err := unmarshalProperties(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "text", out["S"])
	assert.Equal(t, false, out["B"])
	assert.Equal(t, int64(-7), out["I"])
	assert.Equal(t, 1.5, out["F"])
	assert.True(t, when.Equal(out["T"].(time.Time)))
	assert.Equal(t, []byte{0, 1, 2}, out["X"])
	assert.Equal(t, id, out["G"])

	only, err := unmarshalProperties(data, []string{"S", "Missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"S": "text"}, only)
}

func TestEncodeValue_Rejects(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"NaN", math.NaN()},
		{"infinity", math.Inf(1)},
		{"struct", struct{}{}},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encodeValue(tt.v)
			assert.ErrorIs(t, err, types.ErrInvalidProperty)
		})
	}
}

func TestTimeLayout_SortsLexicographically(t *testing.T) {
	a := formatTime(time.Date(2026, 1, 2, 3, 4, 5, 9, time.UTC))
	b := formatTime(time.Date(2026, 1, 2, 3, 4, 5, 10, time.UTC))
	assert.Less(t, a, b)

	parsed, err := parseTime(b)
	require.NoError(t, err)
	assert.Equal(t, 10, parsed.Nanosecond())
}

func TestPropertyPath(t *testing.T) {
	assert.Equal(t, `$."Qty".v`, propertyPath("Qty"))
}

func TestEncodeProperties_DecodeProperties(t *testing.T) {
	raw, err := EncodeProperties(map[string]any{"Qty": 3, "Name": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Qty":{"t":"Edm.Int64","v":3},"Name":{"t":"Edm.String","v":"x"}}`, string(raw))

	props, err := DecodeProperties(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Qty": int64(3), "Name": "x"}, props)

	empty, err := DecodeProperties(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeProperties([]byte(`{"Qty":{"t":"Edm.Unknown","v":1}}`))
	assert.Error(t, err)
}
