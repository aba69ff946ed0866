package lineage

import (
	"errors"
	"fmt"
)

// ErrNotFound means the upstream answered but does not know the device.
var ErrNotFound = errors.New("device not found")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected status %d", e.URL, e.Code)
}
