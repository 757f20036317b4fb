package domain

import "errors"

var (
	ErrNotFound      = errors.New("upload_not_found")
	ErrInvalidID     = errors.New("invalid_upload_id")
	ErrUnknownStatus = errors.New("unknown_upload_status")
)

// StartDecision is the state machine's answer to a start-processing request.
type StartDecision struct {
	// Proceed means a new run may begin.
	Proceed bool
	// AlreadyRunning / AlreadyDone mean the request is an idempotent success
	// and no work must be started.
	AlreadyRunning bool
	AlreadyDone    bool
	// InvalidRows is the number of rows still blocking the transition when
	// the request is rejected.
	InvalidRows int64
}

// DecideStart evaluates the processing transition for the current status.
// pending_validation clears implicitly once no invalid rows remain; a failed
// upload may always be rerun.
func DecideStart(status Status, invalidRows int64) (StartDecision, error) {
	switch status {
	case StatusProcessing:
		return StartDecision{AlreadyRunning: true}, nil
	case StatusDistancesDone:
		return StartDecision{AlreadyDone: true}, nil
	case StatusReady, StatusFailed:
		return StartDecision{Proceed: true}, nil
	case StatusPendingValidation:
		if invalidRows > 0 {
			return StartDecision{InvalidRows: invalidRows}, nil
		}
		return StartDecision{Proceed: true}, nil
	default:
		return StartDecision{}, ErrUnknownStatus
	}
}
