package yolo

import "fmt"

// decodeError is a simple error type for the yolo package
type decodeError string

func (e decodeError) Error() string { return string(e) }

// Errors for decoding operations
const (
	ErrInvalidShape  = decodeError("invalid output tensor shape")
	ErrInvalidStride = decodeError("decode stride must be positive")
	ErrInvalidLayout = decodeError("unknown output tensor layout")
)

// OutOfRangeError reports an output tensor holding fewer values than the
// declared shape and decode stride require.
type OutOfRangeError struct {
	// Need is the number of values the decode walk would read.
	Need int
	// Have is the number of values actually present.
	Have int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("output tensor out of range: need %d values, have %d", e.Need, e.Have)
}
