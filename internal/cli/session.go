package cli

import (
	"context"
	"errors"

	"meeting-summary-service/internal/output"
	"meeting-summary-service/internal/service/pipeline"
	"meeting-summary-service/internal/service/session"
)

// follow prints progress for the current session until it terminates.
func follow(ctx context.Context, ctrl *pipeline.Controller, formatter *output.Formatter) (pipeline.Snapshot, error) {
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return ctrl.Snapshot(), pipeline.ErrClosed
			}
			switch s.Status {
			case session.StatusComplete:
				formatter.Complete(s)
				return s, nil
			case session.StatusFailed:
				return s, errors.New(s.ErrorMessage)
			}
			formatter.Progress(s)
		case <-ctx.Done():
			return ctrl.Snapshot(), ctx.Err()
		}
	}
}
