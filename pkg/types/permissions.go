package types

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Stored access policy limits.
const (
	MaxPolicies       = 5
	MaxPolicyIDLength = 64
)

// Permission letters, in canonical order.
const (
	PermQuery  = 'r'
	PermAdd    = 'a'
	PermUpdate = 'u'
	PermDelete = 'd'
)

const permissionOrder = "raud"

// AccessPolicy is a stored access policy: a validity window and the
// operations it grants.
type AccessPolicy struct {
	Start       time.Time `json:"start,omitzero" yaml:"start,omitempty"`
	Expiry      time.Time `json:"expiry,omitzero" yaml:"expiry,omitempty"`
	Permissions string    `json:"permissions" yaml:"permissions"`
}

// Permissions is the set of stored access policies on a table, keyed by
// policy identifier.
type Permissions struct {
	Policies map[string]AccessPolicy `json:"policies" yaml:"policies"`
}

// NewPermissions returns an empty permission set.
func NewPermissions() *Permissions {
	return &Permissions{Policies: make(map[string]AccessPolicy)}
}

// Clone returns an independent copy.
func (p *Permissions) Clone() *Permissions {
	if p == nil {
		return nil
	}
	return &Permissions{Policies: maps.Clone(p.Policies)}
}

// Validate checks policy count, identifiers, windows and permission letters.
func (p *Permissions) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil permissions", ErrInvalidPolicy)
	}
	if len(p.Policies) > MaxPolicies {
		return fmt.Errorf("%w: %d policies (max %d)", ErrTooManyPolicies, len(p.Policies), MaxPolicies)
	}
	for id, pol := range p.Policies {
		if id == "" || len(id) > MaxPolicyIDLength {
			return fmt.Errorf("%w: identifier %q must be 1..%d characters", ErrInvalidPolicy, id, MaxPolicyIDLength)
		}
		if !pol.Start.IsZero() && !pol.Expiry.IsZero() && !pol.Expiry.After(pol.Start) {
			return fmt.Errorf("%w: %q expires before it starts", ErrInvalidPolicy, id)
		}
		if _, err := NormalizePermissions(pol.Permissions); err != nil {
			return fmt.Errorf("policy %q: %w", id, err)
		}
	}
	return nil
}

// NormalizePermissions validates a permission string and returns it with
// duplicates removed in canonical "raud" order.
func NormalizePermissions(s string) (string, error) {
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		if !strings.ContainsRune(permissionOrder, r) {
			return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidPolicy, r)
		}
		seen[r] = true
	}
	var b strings.Builder
	for _, r := range permissionOrder {
		if seen[r] {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
