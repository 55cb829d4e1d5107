package pipeline

import (
	"errors"
	"fmt"
	"net"

	"interview-insights-go/internal/audio"
	"interview-insights-go/internal/transcription"
	"interview-insights-go/internal/types"
)

// StageError pins a failure to the pipeline stage that produced it.
type StageError struct {
	Stage types.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage types.Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// IsTransient reports whether a failure is worth a fresh attempt. Input
// errors never are; gateway connection faults and 5xx responses are.
func IsTransient(err error) bool {
	if errors.Is(err, audio.ErrEmptyAudio) ||
		errors.Is(err, audio.ErrAudioFormat) ||
		errors.Is(err, audio.ErrSizeLimit) {
		return false
	}
	var svcErr *transcription.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
