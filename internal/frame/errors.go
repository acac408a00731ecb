package frame

import "errors"

// Common errors.
var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrDuplicateKey    = errors.New("duplicate index key")
	ErrNotIndexed      = errors.New("table has no index")
	ErrRaggedRow       = errors.New("row length does not match header")
	ErrEmptyInput      = errors.New("empty CSV input")
	ErrLengthMismatch  = errors.New("column length does not match table length")
)
