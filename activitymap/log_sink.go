package activitymap

import (
	"context"

	auth "github.com/salesreport/go-auth"
)

// NewLogSink returns an ActivitySink writing every event to logger.
// Successes go out at info level, failures and denials at warn level.
func NewLogSink(logger auth.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		if logger == nil {
			return nil
		}

		r := Normalize(event)
		if r.Outcome == OutcomeSuccess {
			logger.Info(string(r.Event), r.Fields()...)
		} else {
			logger.Warn(string(r.Event), r.Fields()...)
		}
		return nil
	})
}
