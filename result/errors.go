package result

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrRetrieval ErrorType = iota
	ErrUnpack
	ErrScan
	ErrConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrRetrieval:
		return "Retrieval"
	case ErrUnpack:
		return "Unpack"
	case ErrScan:
		return "Scan"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// Error represents an error during artifact analysis
type Error struct {
	Type ErrorType
	Path string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
