package commands

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPartialBatchFailure is matched by every *PartialFailureError.
var ErrPartialBatchFailure = errors.New("partial batch failure")

// GroupFailure is a group of a chunked lookup whose query failed.
type GroupFailure struct {
	Values []string
	Err    error
}

// PartialFailureError reports the groups of a chunked lookup that failed
// while their siblings succeeded. It unwraps to ErrPartialBatchFailure and to
// the error of every failed group.
type PartialFailureError struct {
	Groups   int
	Failures []GroupFailure
}

func (e *PartialFailureError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Err.Error())
	}
	return fmt.Sprintf("%s: %d of %d groups failed: %s",
		ErrPartialBatchFailure, len(e.Failures), e.Groups, strings.Join(msgs, "; "))
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrPartialBatchFailure)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
