package runtime

import "errors"

var (
	ErrRuntime             = errors.New("runtime error")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrEmptyIndex          = errors.New("empty image index")
)
