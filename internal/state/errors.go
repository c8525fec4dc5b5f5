package state

import "errors"

// ErrNotFound is returned when the archive holds no data for a request.
var ErrNotFound = errors.New("not found")
