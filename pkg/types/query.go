package types

import (
	"fmt"
	"strings"
	"time"
)

// CompareOp is a filter comparison operator.
type CompareOp string

// Filter comparison operators.
const (
	Eq CompareOp = "eq"
	Ne CompareOp = "ne"
	Gt CompareOp = "gt"
	Ge CompareOp = "ge"
	Lt CompareOp = "lt"
	Le CompareOp = "le"
)

var validOps = map[CompareOp]bool{Eq: true, Ne: true, Gt: true, Ge: true, Lt: true, Le: true}

// Query page sizes.
const (
	DefaultTake = 1000
	MaxTake     = 1000
)

// Condition compares one property against a value. Property may be a
// system property (PartitionKey, RowKey, Timestamp) or a custom property.
type Condition struct {
	Property string
	Op       CompareOp
	Value    any
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Property, c.Op, c.Value)
}

// Validate checks the operator and value type. ETag cannot be filtered on.
func (c Condition) Validate() error {
	if c.Property == "" {
		return fmt.Errorf("%w: empty property", ErrInvalidFilter)
	}
	if c.Property == PropETag {
		return fmt.Errorf("%w: cannot filter on %s", ErrInvalidFilter, PropETag)
	}
	if !validOps[c.Op] {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
	}
	v, err := NormalizeValue(c.Value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFilter, c.Property, err)
	}
	switch c.Property {
	case PropPartitionKey, PropRowKey:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: %s compares against strings", ErrInvalidFilter, c.Property)
		}
	case PropTimestamp:
		if _, ok := v.(time.Time); !ok {
			return fmt.Errorf("%w: %s compares against times", ErrInvalidFilter, c.Property)
		}
	}
	return nil
}

// Query describes a segmented read: ANDed conditions, a page size and an
// optional projection. Results are ordered by PartitionKey then RowKey.
type Query struct {
	Conditions []Condition
	Take       int
	Select     []string
}

// NewQuery returns an unfiltered query with the default page size.
func NewQuery() *Query {
	return &Query{}
}

// Where adds a condition and returns the query for chaining.
func (q *Query) Where(property string, op CompareOp, value any) *Query {
	q.Conditions = append(q.Conditions, Condition{Property: property, Op: op, Value: value})
	return q
}

// Top sets the page size.
func (q *Query) Top(n int) *Query {
	q.Take = n
	return q
}

// Columns sets the projection.
func (q *Query) Columns(names ...string) *Query {
	q.Select = names
	return q
}

// PageSize returns Take, or DefaultTake when unset.
func (q *Query) PageSize() int {
	if q == nil || q.Take == 0 {
		return DefaultTake
	}
	return q.Take
}

// Validate checks every condition and the page size.
func (q *Query) Validate() error {
	if q == nil {
		return nil
	}
	if q.Take < 0 || q.Take > MaxTake {
		return fmt.Errorf("%w: take %d outside 1..%d", ErrInvalidQuery, q.Take, MaxTake)
	}
	for _, c := range q.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, name := range q.Select {
		if systemProperties[name] {
			continue
		}
		if err := ValidatePropertyName(name); err != nil {
			return fmt.Errorf("%w: select: %v", ErrInvalidQuery, err)
		}
	}
	return nil
}

func (q *Query) String() string {
	if q == nil || len(q.Conditions) == 0 {
		return ""
	}
	parts := make([]string, len(q.Conditions))
	for i, c := range q.Conditions {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}

// ContinuationToken marks where the next segment of a query starts.
type ContinuationToken struct {
	NextPartitionKey string `json:"next_partition_key"`
	NextRowKey       string `json:"next_row_key"`
}

// QuerySegment is one page of query results. A nil ContinuationToken means
// the query has no further results.
type QuerySegment[T any] struct {
	Results           []T
	ContinuationToken *ContinuationToken
}

// Resolver projects a stored row into a caller-defined value.
type Resolver[R any] func(partitionKey, rowKey string, timestamp time.Time, properties map[string]any, etag string) (R, error)
