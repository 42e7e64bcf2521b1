package sourceclient

import "errors"

// Error taxonomy returned by Transport.Do and the Store/Meta clients built on
// it, per spec.md §4.2. The Store/Meta clients wrap them with %w, so callers
// can distinguish them via errors.Is; a 2xx response that fails to decode is ErrMalformed, never
// folded into the retry path since retrying cannot fix a shape mismatch.
var (
	ErrNotFound     = errors.New("source: not found")
	ErrRateLimited  = errors.New("source: rate limited")
	ErrNetwork      = errors.New("source: network error")
	ErrUpstream5xx  = errors.New("source: upstream server error")
	ErrMalformed    = errors.New("source: malformed response")
	ErrCircuitOpen  = errors.New("source: circuit breaker open")
)
