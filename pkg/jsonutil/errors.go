package jsonutil

import (
	"errors"
	"fmt"
)

// ErrInvalidOutput is returned by Unmarshal when the destination is nil.
var ErrInvalidOutput = errors.New("jsonutil: output destination is nil")

// ErrValueTooLarge is returned by Unmarshal when the input exceeds MaxJSONSize.
var ErrValueTooLarge = errors.New("jsonutil: input exceeds maximum JSON size")

func wrapError(context string, err error) error {
	return fmt.Errorf("%s: %w", context, err)
}
