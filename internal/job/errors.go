package job

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToProcess reports a process step applied before any content exists.
	ErrNothingToProcess = errors.New("job: nothing to process")
	// ErrNothingToEncode reports an encode step applied before any content exists.
	ErrNothingToEncode = errors.New("job: nothing to encode")
	// ErrNothingToAnalyse reports an analysis requested on a job without content.
	ErrNothingToAnalyse = errors.New("job: nothing to analyse")
	// ErrNoContent reports a content read on a job whose steps produce nothing.
	ErrNoContent = errors.New("job: no content")
	// ErrInvalidArray reports a serialized step list that cannot be rebuilt.
	ErrInvalidArray = errors.New("job: invalid step array")
	// ErrInvalidArgument reports a step argument or attribute of the wrong shape.
	ErrInvalidArgument = errors.New("job: invalid argument")
	// ErrNoSHAGiven reports signature validation without a candidate signature.
	ErrNoSHAGiven = errors.New("job: no sha given")
	// ErrIncorrectSHA reports a signature that does not match the job.
	ErrIncorrectSHA = errors.New("job: incorrect sha")
	// ErrNoSuchMethod reports a dynamic call to a name with no reader or analyser.
	ErrNoSuchMethod = errors.New("job: no such method")
	// ErrNoCollaborator reports a step whose backend is not configured on the App.
	ErrNoCollaborator = errors.New("job: collaborator not configured")
)

// NoSuchMethodError names the reader or analyser that could not be resolved.
type NoSuchMethodError struct {
	Name string
}

func (e *NoSuchMethodError) Error() string {
	return fmt.Sprintf("job: undefined method %q", e.Name)
}

// Is lets errors.Is match NoSuchMethodError against ErrNoSuchMethod.
func (e *NoSuchMethodError) Is(target error) bool {
	return target == ErrNoSuchMethod
}

// StepError wraps a failure raised while applying one step.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("job: apply step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
