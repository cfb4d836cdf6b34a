// Package repository is the data gateway for the portal. Repositories map
// between snake_case rows and the camelCase view models in internal/models.
// Every read returns an empty slice (never nil) when no rows match, ordering
// is always explicit in the query, and failures are wrapped and propagated
// to the caller. No retries, no caching at this layer.
package repository

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// now is swappable in tests.
var now = time.Now
