package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type ResourceKind string

const (
	ResourceOffers       ResourceKind = "offers"
	ResourceBids         ResourceKind = "bids"
	ResourceListing      ResourceKind = "listing"
	ResourceListings     ResourceKind = "listings"
	ResourceUserListings ResourceKind = "userListings"
)

func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceOffers, ResourceBids, ResourceListing, ResourceListings, ResourceUserListings:
		return true
	}
	return false
}

// RequiresScope reports whether a query of this kind names one entity.
// Only listings has an unscoped form.
func (k ResourceKind) RequiresScope() bool {
	return k != ResourceListings
}

// InvalidationTarget addresses cached query results. An empty ScopeID is an
// unscoped target and covers every key of its kind.
type InvalidationTarget struct {
	Kind    ResourceKind
	ScopeID string
}

func Scoped(kind ResourceKind, scopeID string) InvalidationTarget {
	return InvalidationTarget{Kind: kind, ScopeID: scopeID}
}

func Unscoped(kind ResourceKind) InvalidationTarget {
	return InvalidationTarget{Kind: kind}
}

func (t InvalidationTarget) IsScoped() bool {
	return t.ScopeID != ""
}

// Matches reports whether invalidating t must invalidate the entry at key.
func (t InvalidationTarget) Matches(key QueryKey) bool {
	if t.Kind != key.Kind {
		return false
	}
	return !t.IsScoped() || t.ScopeID == key.Scope
}

func (t InvalidationTarget) String() string {
	if t.IsScoped() {
		return fmt.Sprintf("%s(%s)", t.Kind, t.ScopeID)
	}
	return string(t.Kind) + "()"
}

// QueryKey is the composite cache key [resourceKind, scopeId?].
type QueryKey struct {
	Kind  ResourceKind
	Scope string
}

func NewQueryKey(kind ResourceKind, scope string) QueryKey {
	return QueryKey{Kind: kind, Scope: scope}
}

// ParseQueryKey builds a key from its array form, e.g. ["bids", "L1"].
func ParseQueryKey(parts []string) (QueryKey, error) {
	if len(parts) == 0 || len(parts) > 2 {
		return QueryKey{}, fmt.Errorf("query key must have 1 or 2 parts, got %d", len(parts))
	}
	kind := ResourceKind(parts[0])
	if !kind.Valid() {
		return QueryKey{}, fmt.Errorf("%w: %q", ErrUnknownKind, parts[0])
	}
	key := QueryKey{Kind: kind}
	if len(parts) == 2 {
		key.Scope = parts[1]
	}
	return key, nil
}

// Validate checks that key can be fetched: a known kind with a scope when the
// kind needs one.
func (k QueryKey) Validate() error {
	if !k.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, k.Kind)
	}
	if k.Scope == "" && k.Kind.RequiresScope() {
		return fmt.Errorf("%w: %s", ErrScopeRequired, k.Kind)
	}
	return nil
}

func (k QueryKey) Parts() []string {
	if k.Scope == "" {
		return []string{string(k.Kind)}
	}
	return []string{string(k.Kind), k.Scope}
}

func (k QueryKey) String() string {
	return strings.Join(k.Parts(), ":")
}

func (k QueryKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Parts())
}

func (k *QueryKey) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	parsed, err := ParseQueryKey(parts)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TargetSet is an unordered set of invalidation targets.
type TargetSet map[InvalidationTarget]struct{}

func NewTargetSet(targets ...InvalidationTarget) TargetSet {
	set := make(TargetSet, len(targets))
	for _, t := range targets {
		set.Add(t)
	}
	return set
}

func (s TargetSet) Add(t InvalidationTarget) {
	s[t] = struct{}{}
}

func (s TargetSet) Contains(t InvalidationTarget) bool {
	_, ok := s[t]
	return ok
}

func (s TargetSet) Equal(other TargetSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Slice returns the targets ordered by kind then scope.
func (s TargetSet) Slice() []InvalidationTarget {
	out := make([]InvalidationTarget, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ScopeID < out[j].ScopeID
	})
	return out
}
