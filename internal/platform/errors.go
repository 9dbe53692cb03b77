// Package platform talks to the remote community-site API: a single-flight
// rate-limited HTTP client plus typed wrappers over its endpoints.
package platform

import (
	"errors"
	"fmt"
)

// Forbidden is returned when the remote platform responds 403 or resets the
// connection. The caller should treat the current tick as aborted; the
// client enters a backoff window until IsForbidden() clears.
var Forbidden = errors.New("platform: forbidden")

// InvalidUser is returned when a profile URL responds 404 or 410: the user
// no longer exists on the remote platform.
var InvalidUser = errors.New("platform: invalid user")

// NoUsersReturned is returned when a discovery page comes back empty,
// signalling the last page has been reached.
var NoUsersReturned = errors.New("platform: no users returned")

// ErrTooManyIDs is returned when a batch fetch is attempted with more than
// the platform's 50-id cap. This is a programming error, not a transient
// failure.
var ErrTooManyIDs = errors.New("platform: too many ids in batch request")

// HTTPError wraps an unexpected non-2xx response.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("platform: unexpected status %d for %s", e.Status, e.URL)
}

// MaxBatchIDs is the hard cap on ids accepted by a single batch fetch.
const MaxBatchIDs = 50
