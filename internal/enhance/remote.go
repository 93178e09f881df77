package enhance

import (
	"context"

	"github.com/pixelift/pixelift/internal/models"
)

// Output filename suffixes for downloaded results.
const (
	UpscaleSuffix          = "_upscaled"
	RemoveBackgroundSuffix = "_no_bg"
)

// RemoteJob is the API's answer to an upload: either a queued job to poll or
// a synchronous result.
type RemoteJob struct {
	JobID     string
	ResultURL string
}

func (j *RemoteJob) Synchronous() bool {
	return j.ResultURL != ""
}

// RemoteBackend talks to the enhancement API. Methods report their own phase
// progress in [0,1]; rescaling into the job's overall range is the
// orchestrator's concern.
type RemoteBackend interface {
	StartUpscale(ctx context.Context, inputPath string, model models.UpscaleModel, scale models.ScaleFactor) (*RemoteJob, error)
	PollUpscale(ctx context.Context, jobID string, progress ProgressFunc) (string, error)
	RemoveBackground(ctx context.Context, inputPath string, model models.RemovalModel) (*RemoteJob, error)
	Download(ctx context.Context, resultURL, originalName, suffix string) (string, error)
	FetchCredits(ctx context.Context) (imageCredits, videoSeconds int, err error)
}
