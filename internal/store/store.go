// Package store holds the small contracts shared by local persistence
// backends such as the request journal.
package store

import (
	"context"
)

// Store is the minimal interface every local store implements.
type Store interface {
	// Ping verifies the backing file is usable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	Limit  int               // Maximum results (0 = backend default)
	Offset int               // Skip first N results
	Where  map[string]string // Column equality conditions
}

// DefaultFilter returns a filter with no conditions.
func DefaultFilter() Filter {
	return Filter{}
}

// WithLimit returns a copy of the filter with a new limit.
func (f Filter) WithLimit(n int) Filter {
	f.Limit = n
	return f
}

// WithOffset returns a copy of the filter with a new offset.
func (f Filter) WithOffset(n int) Filter {
	f.Offset = n
	return f
}

// WithWhere returns a copy of the filter with an added condition.
// An empty value leaves the filter unchanged.
func (f Filter) WithWhere(field, value string) Filter {
	if value == "" {
		return f
	}
	where := make(map[string]string, len(f.Where)+1)
	for k, v := range f.Where {
		where[k] = v
	}
	where[field] = value
	f.Where = where
	return f
}
