package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maxConsecutiveTransient is how many missed status queries in a row end a
// poll with ABORTED.
const maxConsecutiveTransient = 3

// Budget bounds a poll: at most MaxAttempts status queries, each preceded
// by a sleep of Interval.
type Budget struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// Timeout is the wall-clock upper bound of the budget, excluding query time.
func (b Budget) Timeout() time.Duration {
	return b.Interval * time.Duration(b.MaxAttempts)
}

// Poll waits for the job behind h to reach a terminal state. It never
// returns an error: every outcome is expressed as a terminal Status.
//
// A budget that runs out yields TIMED_OUT. A TransientQueryError counts as a
// missed attempt; three in a row yield ABORTED. Any other query error, or ctx
// ending, yields ABORTED at once.
func Poll(ctx context.Context, q StatusQuerier, h Handle, b Budget) Status {
	log := zap.L().With(zap.String("job_id", h.JobID))

	transient := 0
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		timer := time.NewTimer(b.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("poll: context done", zap.Error(ctx.Err()))
			return Status{State: StateAborted, DatasetRef: h.DatasetRef, Message: ctx.Err().Error()}
		case <-timer.C:
		}

		st, err := q.Status(ctx, h)
		if err != nil {
			var tqe *TransientQueryError
			if !errors.As(err, &tqe) {
				log.Warn("poll: status query failed", zap.Int("attempt", attempt), zap.Error(err))
				return Status{State: StateAborted, DatasetRef: h.DatasetRef, Message: err.Error()}
			}
			transient++
			log.Debug("poll: transient status error",
				zap.Int("attempt", attempt),
				zap.Int("consecutive", transient),
				zap.Error(err),
			)
			if transient >= maxConsecutiveTransient {
				return Status{
					State:      StateAborted,
					DatasetRef: h.DatasetRef,
					Message:    fmt.Sprintf("%d consecutive status errors: %v", transient, err),
				}
			}
			continue
		}
		transient = 0

		if st.DatasetRef != "" {
			h = h.WithDataset(st.DatasetRef)
		}
		if st.State.Terminal() {
			st.DatasetRef = h.DatasetRef
			log.Debug("poll: terminal", zap.String("state", string(st.State)), zap.Int("attempt", attempt))
			return st
		}
	}

	return Status{
		State:      StateTimedOut,
		DatasetRef: h.DatasetRef,
		Message:    fmt.Sprintf("still running after %d status checks", b.MaxAttempts),
	}
}
