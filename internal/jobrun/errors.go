package jobrun

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the fatal failure stages. Callers classify run
// failures with errors.Is against these.
var (
	ErrConnectivity = errors.New("engine connectivity check failed")
	ErrSubmission   = errors.New("workflow submission failed")
	ErrExecution    = errors.New("workflow execution failed")
	ErrTimeout      = errors.New("workflow timed out")
)

// wrap tags err with the given stage marker and an operation label so the
// final message reads "<stage>: <operation>: <cause>".
func wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	switch {
	case operation == "" && err == nil:
		return marker
	case err == nil:
		return fmt.Errorf("%w: %s", marker, operation)
	case operation == "":
		return fmt.Errorf("%w: %w", marker, err)
	default:
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
}
