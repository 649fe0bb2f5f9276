package dataset

import "fmt"

// ErrUnsupportedFormat is returned when an upload has an extension other
// than .csv or .xlsx.
type ErrUnsupportedFormat struct {
	Ext string
}

func (e *ErrUnsupportedFormat) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "no extension"
	}
	return fmt.Sprintf("unsupported file format %q: only .csv and .xlsx are accepted", ext)
}

// ErrEmptyInput is returned when the parsed table has no rows or no columns.
type ErrEmptyInput struct{}

func (e *ErrEmptyInput) Error() string {
	return "the file is empty or contains no valid data"
}

// ErrParse wraps a malformed-structure failure from the underlying reader.
type ErrParse struct {
	Err error
}

func (e *ErrParse) Error() string {
	return "failed to parse file: " + e.Err.Error()
}

func (e *ErrParse) Unwrap() error { return e.Err }
