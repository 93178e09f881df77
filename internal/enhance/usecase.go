package enhance

import (
	"context"

	"github.com/pixelift/pixelift/internal/models"
)

// ProgressFunc receives overall job progress in [0,1]. Values are delivered
// in issuing order and never decrease within a job.
type ProgressFunc func(progress float64)

// StateFunc receives a snapshot of the job on every status transition.
type StateFunc func(job models.Job)

// UseCase drives one job at a time through its state machine, dispatching to
// the local or remote backend and enforcing credit accounting.
type UseCase interface {
	Upscale(ctx context.Context, input *models.UpscaleInput, progress ProgressFunc) (string, error)
	RemoveBackground(ctx context.Context, input *models.RemoveBackgroundInput, progress ProgressFunc) (string, error)
	Cancel()
	Reset()
	Current() *models.Job
	SetStateListener(fn StateFunc)
}
