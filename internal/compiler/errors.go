package compiler

import "fmt"

// ParseError locates a fatal compile error in the expanded source.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func errorAt(line int, err error) error {
	return &ParseError{Line: line, Err: err}
}
