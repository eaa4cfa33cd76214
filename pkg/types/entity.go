package types

import (
	"fmt"
	"maps"
	"regexp"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// System property names. Custom properties must not reuse them.
const (
	PropPartitionKey = "PartitionKey"
	PropRowKey       = "RowKey"
	PropTimestamp    = "Timestamp"
	PropETag         = "ETag"
)

// Entity limits enforced by Validate.
const (
	MaxKeyLength          = 1024
	MaxPropertyNameLength = 255
	MaxCustomProperties   = 252
)

// ETagAny matches any current ETag on Replace, Merge and Delete.
const ETagAny = "*"

// propertyNamePattern restricts custom property names to identifiers.
var propertyNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var systemProperties = map[string]bool{
	PropPartitionKey: true,
	PropRowKey:       true,
	PropTimestamp:    true,
	PropETag:         true,
}

// Entity is a single row in a table: its two-part key, the service-managed
// Timestamp and ETag, and a bag of typed custom properties.
//
// Property values are limited to string, bool, int32, int64, int, float64,
// time.Time, []byte and uuid.UUID.
type Entity struct {
	PartitionKey string         `json:"PartitionKey"`
	RowKey       string         `json:"RowKey"`
	Timestamp    time.Time      `json:"Timestamp,omitzero"`
	ETag         string         `json:"ETag,omitempty"`
	Properties   map[string]any `json:"Properties,omitempty"`
}

// NewEntity returns an entity with the given keys and no properties.
func NewEntity(partitionKey, rowKey string) *Entity {
	return &Entity{
		PartitionKey: partitionKey,
		RowKey:       rowKey,
		Properties:   make(map[string]any),
	}
}

// Set stores a custom property and returns the entity for chaining.
func (e *Entity) Set(name string, value any) *Entity {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[name] = value
	return e
}

// Get returns the named custom property.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.Properties[name]
	return v, ok
}

// Clone returns a copy whose property map can be modified independently.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Properties = maps.Clone(e.Properties)
	return &c
}

// Validate checks keys, property names and property value types.
func (e *Entity) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidOperation)
	}
	if err := ValidateKey(e.PartitionKey); err != nil {
		return fmt.Errorf("partition key: %w", err)
	}
	if err := ValidateKey(e.RowKey); err != nil {
		return fmt.Errorf("row key: %w", err)
	}
	if len(e.Properties) > MaxCustomProperties {
		return fmt.Errorf("%w: %d properties exceeds %d", ErrInvalidProperty, len(e.Properties), MaxCustomProperties)
	}
	for name, v := range e.Properties {
		if err := ValidatePropertyName(name); err != nil {
			return err
		}
		if _, err := NormalizeValue(v); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	return nil
}

// ValidateKey checks a partition or row key: non-empty, at most
// MaxKeyLength bytes, and free of '/', '\', '#', '?' and control characters.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, MaxKeyLength)
	}
	for _, r := range key {
		if r == '/' || r == '\\' || r == '#' || r == '?' || unicode.IsControl(r) {
			return fmt.Errorf("%w: disallowed character %q", ErrInvalidKey, r)
		}
	}
	return nil
}

// ValidatePropertyName rejects empty, oversized, non-identifier and system
// property names.
func ValidatePropertyName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidProperty)
	case len(name) > MaxPropertyNameLength:
		return fmt.Errorf("%w: name longer than %d", ErrInvalidProperty, MaxPropertyNameLength)
	case systemProperties[name]:
		return fmt.Errorf("%w: %q is a system property", ErrInvalidProperty, name)
	case !propertyNamePattern.MatchString(name):
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidProperty, name)
	}
	return nil
}

// NormalizeValue converts a property value to its canonical type: integers
// become int64, times become UTC. Unsupported types fail with
// ErrInvalidProperty.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64, []byte, uuid.UUID:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case time.Time:
		return x.UTC(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidProperty, v)
	}
}

// EntityReader is implemented by typed entities that can be populated from
// a stored Entity. Typed segmented queries decode each row through it.
type EntityReader interface {
	ReadEntity(e *Entity) error
}

// EntityWriter is implemented by typed entities that can render themselves
// as an Entity. NewOperation turns one into an insert or update.
type EntityWriter interface {
	WriteEntity() (*Entity, error)
}
