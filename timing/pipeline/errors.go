package pipeline

import "errors"

// ErrCapacityExceeded is returned when a bounded structure (reorder buffer,
// load queue, store queue) has no free entry. It is always recoverable: the
// requesting stage makes zero progress this cycle and retries on a later
// call. It is never fatal.
var ErrCapacityExceeded = errors.New("pipeline: capacity exceeded")
