package testgen

// GenerationError means the generator's output could not be coerced into
// valid questions after the repair pass. It is not retried here; callers
// decide whether to retry the whole generation.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return e.Reason
}

// ValidationError means the caller's input was rejected before any external
// call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
