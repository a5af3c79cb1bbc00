package tx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSubmissionFailure is returned when a submitted call ends in a non-success
// terminal status.
var ErrSubmissionFailure = errors.New("tx: submission failed")

// Status is the terminal outcome reported by a Submitter.
type Status struct {
	Success bool
	// Value is the decoded SuccessValue payload, if any.
	Value  json.RawMessage
	Reason string
	TxHash string
}

// Submitter signs and broadcasts a call, returning its terminal status.
type Submitter interface {
	Submit(ctx context.Context, call *Call) (*Status, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, call *Call) (*Status, error)

func (f SubmitterFunc) Submit(ctx context.Context, call *Call) (*Status, error) {
	return f(ctx, call)
}

// SubmissionError carries the terminal status of a failed call verbatim.
type SubmissionError struct {
	Receiver string
	Method   string
	Status   Status
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	reason := e.Status.Reason
	if reason == "" {
		reason = "non-success terminal status"
	}
	if e.Status.TxHash != "" {
		return fmt.Sprintf("tx: %s.%s failed (tx %s): %s", e.Receiver, e.Method, e.Status.TxHash, reason)
	}
	return fmt.Sprintf("tx: %s.%s failed: %s", e.Receiver, e.Method, reason)
}

func (e *SubmissionError) Unwrap() error {
	return ErrSubmissionFailure
}

// Send hands call to submitter. Transport errors are wrapped as returned; a
// status that is not Success is a *SubmissionError even without an error.
func Send(ctx context.Context, submitter Submitter, call *Call) (*Status, error) {
	if submitter == nil {
		return nil, errors.New("tx: submitter is nil")
	}
	if call == nil {
		return nil, errors.New("tx: call is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	status, err := submitter.Submit(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("tx: submit %s.%s: %w", call.Receiver(), call.Method(), err)
	}
	if status == nil {
		return nil, &SubmissionError{Receiver: call.Receiver(), Method: call.Method(), Status: Status{Reason: "no terminal status"}}
	}
	if !status.Success {
		return status, &SubmissionError{Receiver: call.Receiver(), Method: call.Method(), Status: *status}
	}
	return status, nil
}
