package traverse

import (
	"errors"
	"fmt"
)

// ErrInputNotFound matches any *InputNotFoundError with errors.Is.
var ErrInputNotFound = errors.New("input path does not exist")

// InputNotFoundError reports an input path that does not exist. It is
// returned before any file is touched.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input path does not exist: %s", e.Path)
}

func (e *InputNotFoundError) Is(target error) bool {
	return target == ErrInputNotFound
}

func (e *InputNotFoundError) Unwrap() error {
	return e.Err
}
