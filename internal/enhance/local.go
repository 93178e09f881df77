package enhance

import (
	"context"

	"github.com/pixelift/pixelift/internal/models"
)

type MediaInfo struct {
	Width    int
	Height   int
	Duration float64
}

// LocalBackend performs scaling with a local command-line tool, no network
// involved. Progress on single images is synthetic: the tool reports none.
type LocalBackend interface {
	Available() bool
	Probe(ctx context.Context, path string) (*MediaInfo, error)
	Upscale(ctx context.Context, inputPath string, scale models.ScaleFactor, quality models.QualityPreset, progress ProgressFunc) (string, error)
}
