package pipeline

import "fmt"

// DocumentError is a failure to fetch or read the résumé document itself.
type DocumentError struct {
	Stage string
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s document: %v", e.Stage, e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}
