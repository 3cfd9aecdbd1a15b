package util

import (
	"go.uber.org/zap"
)

// ErrorField logs err as its message only. zap.Error would add the
// errorVerbose stack trace that pkg/errors values carry, which is noise for
// expected protocol failures.
func ErrorField(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}

	return zap.String("error", err.Error())
}
