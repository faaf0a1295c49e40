package framework

import (
	"strconv"
	"strings"
)

// AggregatedError collects the errors of several independent parts, e.g.
// every transport of a publish or every invalid config field.
type AggregatedError struct {
	Errors []error
}

// Error implements error. Errors are joined on one line so the whole
// aggregate fits into a single log entry.
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(e.Errors)))
	sb.WriteString(" errors: ")
	for n, err := range e.Errors {
		if n > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add collects errors, skipping nil.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns nil when nothing was collected.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
