package log

import (
	"github.com/cockroachdb/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// errorStackMarshaler is installed as zerolog.ErrorStackMarshaler so that
// errors created through pkg/errors (cockroachdb/errors) carry their stack
// into the structured log record.
func errorStackMarshaler(err error) interface{} {
	if st := extractStacktrace(err); st != "" {
		return st
	}
	return nil
}

func extractStacktrace(err error) string {
	if err == nil {
		return ""
	}
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	// The stack usually sits on the WithStack wrapper; GetSafeDetails only
	// inspects the outermost layer, so walk the chain.
	for _, d := range errors.GetAllSafeDetails(err) {
		if len(d.SafeDetails) > 0 {
			return d.SafeDetails[0]
		}
	}
	return ""
}
