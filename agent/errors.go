package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrBlankTopic is returned before any step runs when the topic is empty or whitespace.
	ErrBlankTopic = errors.New("please enter a topic before submitting")
	// ErrMalformedSentiment is returned when the classifier output lacks a sentiment label.
	ErrMalformedSentiment = errors.New("malformed sentiment response")
	// ErrTooManyTransitions is returned if a run walks more edges than the graph allows.
	ErrTooManyTransitions = errors.New("workflow exceeded transition limit")
)

// FailureKind tells the driver whether a step failure can be absorbed.
type FailureKind int

const (
	// FailureRecoverable failures are logged and the run continues with the step's update.
	FailureRecoverable FailureKind = iota
	// FailureFatal failures abort the run.
	FailureFatal
)

func (k FailureKind) String() string {
	if k == FailureRecoverable {
		return "recoverable"
	}
	return "fatal"
}

// StepError records which node failed and how the driver treated it.
type StepError struct {
	Node Node
	Kind FailureKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Node, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
