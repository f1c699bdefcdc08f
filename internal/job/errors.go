package job

import (
	"fmt"
)

// SubmissionError is returned when a provider refuses to start a job.
// Transient is set when the refusal was a transport fault that survived
// retries; otherwise it is a configuration fault (bad credentials or spec).
type SubmissionError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: submit rejected (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: submit failed: %v", e.Provider, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TransientQueryError is a status query failure that may succeed on retry.
type TransientQueryError struct {
	JobID string
	Err   error
}

func (e *TransientQueryError) Error() string {
	return fmt.Sprintf("status query for job %s: %v", e.JobID, e.Err)
}

func (e *TransientQueryError) Unwrap() error {
	return e.Err
}

// FetchError is returned when a succeeded job's output cannot be read.
type FetchError struct {
	JobID string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch results for job %s: %v", e.JobID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
