package enhance

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized means no session token is available or the API rejected
	// the one presented. Remediation is signing in.
	ErrUnauthorized = errors.New("unauthorized: sign in to use AI processing")

	// ErrInsufficientCredits means the ledger gate failed before dispatch.
	ErrInsufficientCredits = errors.New("not enough credits")

	// ErrRateLimited means the API is throttling. No automatic retry.
	ErrRateLimited = errors.New("too many requests, retry later")

	// ErrToolNotFound means ffmpeg could not be located at any known path.
	ErrToolNotFound = errors.New("ffmpeg not found: install it with your package manager")

	// ErrInvalidInput means the input file could not be read or is not
	// supported by the selected execution path.
	ErrInvalidInput = errors.New("could not read the input file")

	// ErrTimeout means the remote poll loop exhausted its attempt cap.
	ErrTimeout = errors.New("remote job timed out")

	// ErrNoResult means the API reported completion without a result URL.
	ErrNoResult = errors.New("no result received from server")

	// ErrJobInFlight means a job is already running on this orchestrator.
	ErrJobInFlight = errors.New("a job is already in progress")
)

// ServerError is any unexpected non-2xx remote status.
type ServerError struct {
	Code int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d)", e.Code)
}

// ProcessingError carries the failure detail reported by a backend: ffmpeg
// stderr on the local path, the API error string on the remote path.
type ProcessingError struct {
	Detail string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed: %s", e.Detail)
}
