package sqlite

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Property type tags, named after the table service's EDM types.
const (
	edmString   = "Edm.String"
	edmBoolean  = "Edm.Boolean"
	edmInt64    = "Edm.Int64"
	edmDouble   = "Edm.Double"
	edmDateTime = "Edm.DateTime"
	edmBinary   = "Edm.Binary"
	edmGUID     = "Edm.Guid"
)

// timeLayout is fixed width so stored times sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// propertyJSON is one typed property in the entities.properties column.
// Filters read the value with json_extract(properties, '$."Name".v').
type propertyJSON struct {
	Type  string `json:"t"`
	Value any    `json:"v"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// encodeValue converts a property value to its stored type tag and the
// value json_extract compares against.
func encodeValue(v any) (propertyJSON, error) {
	n, err := types.NormalizeValue(v)
	if err != nil {
		return propertyJSON{}, err
	}
	switch x := n.(type) {
	case string:
		return propertyJSON{edmString, x}, nil
	case bool:
		return propertyJSON{edmBoolean, x}, nil
	case int64:
		return propertyJSON{edmInt64, x}, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return propertyJSON{}, fmt.Errorf("%w: non-finite double", types.ErrInvalidProperty)
		}
		return propertyJSON{edmDouble, x}, nil
	case time.Time:
		return propertyJSON{edmDateTime, formatTime(x)}, nil
	case []byte:
		return propertyJSON{edmBinary, base64.StdEncoding.EncodeToString(x)}, nil
	case uuid.UUID:
		return propertyJSON{edmGUID, x.String()}, nil
	default:
		return propertyJSON{}, fmt.Errorf("%w: unsupported value type %T", types.ErrInvalidProperty, v)
	}
}

// decodeValue is the inverse of encodeValue.
func decodeValue(p propertyJSON) (any, error) {
	switch p.Type {
	case edmString:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return s, nil
	case edmBoolean:
		b, ok := p.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return b, nil
	case edmInt64:
		num, ok := p.Value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return strconv.ParseInt(num.String(), 10, 64)
	case edmDouble:
		num, ok := p.Value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return num.Float64()
	case edmDateTime:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return parseTime(s)
	case edmBinary:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return base64.StdEncoding.DecodeString(s)
	case edmGUID:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s value is %T", p.Type, p.Value)
		}
		return uuid.Parse(s)
	default:
		return nil, fmt.Errorf("unknown property type %q", p.Type)
	}
}

// marshalProperties renders an entity's property bag for storage.
func marshalProperties(props map[string]any) (string, error) {
	out := make(map[string]propertyJSON, len(props))
	for name, v := range props {
		p, err := encodeValue(v)
		if err != nil {
			return "", fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = p
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}

// unmarshalProperties parses a stored property bag. When columns is
// non-empty only the named properties are returned.
func unmarshalProperties(data string, columns []string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]propertyJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	var keep map[string]bool
	if len(columns) > 0 {
		keep = make(map[string]bool, len(columns))
		for _, c := range columns {
			keep[c] = true
		}
	}
	props := make(map[string]any, len(raw))
	for name, p := range raw {
		if keep != nil && !keep[name] {
			continue
		}
		v, err := decodeValue(p)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = v
	}
	return props, nil
}

// filterValue converts a condition value to the form stored in the
// properties column so SQLite compares like with like.
func filterValue(v any) (any, error) {
	p, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	return p.Value, nil
}

// propertyPath returns the json_extract path of a custom property's value.
func propertyPath(name string) string {
	return `$."` + name + `".v`
}

// EncodeProperties renders props in the typed storage form, for export.
func EncodeProperties(props map[string]any) (json.RawMessage, error) {
	data, err := marshalProperties(props)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// DecodeProperties parses the typed storage form produced by
// EncodeProperties.
func DecodeProperties(data json.RawMessage) (map[string]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return map[string]any{}, nil
	}
	return unmarshalProperties(string(data), nil)
}
