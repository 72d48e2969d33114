package collect

import "fmt"

// ParseError reports a project JSON file that could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse file: %s. File must be valid JSON: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
