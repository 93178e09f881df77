package local

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/enhance"
	"github.com/pixelift/pixelift/internal/models"
)

func TestTargetDimensions(t *testing.T) {
	tests := []struct {
		name       string
		info       enhance.MediaInfo
		scale      models.ScaleFactor
		wantWidth  int
		wantHeight int
	}{
		{"2x", enhance.MediaInfo{Width: 1000, Height: 500}, models.Scale2x, 2000, 1000},
		{"4x", enhance.MediaInfo{Width: 1000, Height: 500}, models.Scale4x, 4000, 2000},
		{"8x", enhance.MediaInfo{Width: 1000, Height: 500}, models.Scale8x, 8000, 4000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			width, height := TargetDimensions(&tc.info, tc.scale)
			assert.Equal(t, tc.wantWidth, width)
			assert.Equal(t, tc.wantHeight, height)
		})
	}
}

func TestScaleFlag(t *testing.T) {
	assert.Equal(t, "bilinear", scaleFlag(models.QualityFast))
	assert.Equal(t, "bicubic", scaleFlag(models.QualityBalanced))
	assert.Equal(t, "lanczos", scaleFlag(models.QualityBest))
}

func TestBuildArgsJPEG(t *testing.T) {
	args := buildArgs("/in/photo.jpg", "/out/photo_2x.jpg", 2000, 1000, models.QualityFast, "jpg")

	assert.Equal(t, []string{
		"-i", "/in/photo.jpg",
		"-vf", "scale=2000:1000:flags=bilinear",
		"-q:v", "8",
		"-y", "/out/photo_2x.jpg",
	}, args)
}

func TestBuildArgsJPEGQualityIsInverted(t *testing.T) {
	assert.Equal(t, "8", jpegQuality(models.QualityFast))
	assert.Equal(t, "4", jpegQuality(models.QualityBalanced))
	assert.Equal(t, "2", jpegQuality(models.QualityBest))
}

func TestBuildArgsPNG(t *testing.T) {
	args := buildArgs("/in/photo.png", "/out/photo_4x.png", 4000, 2000, models.QualityBest, "png")

	assert.Contains(t, args, "-compression_level")
	assert.Equal(t, "scale=4000:2000:flags=lanczos", args[3])
	assert.NotContains(t, args, "-q:v")
}

func TestBuildArgsWebP(t *testing.T) {
	for quality, want := range map[models.QualityPreset]string{
		models.QualityFast:     "75",
		models.QualityBalanced: "85",
		models.QualityBest:  "95",
	} {
		args := buildArgs("/in/photo.webp", "/out/photo_2x.webp", 2000, 1000, quality, "webp")
		require.Contains(t, args, "-quality")
		assert.Equal(t, want, args[len(args)-3])
	}
}

func TestFindToolFallsBackToPathLookup(t *testing.T) {
	cfg := &config.Config{FFmpeg: config.FFmpegConfig{Paths: []string{filepath.Join(t.TempDir(), "nowhere")}}}
	b := &ffmpegBackend{
		cfg: cfg,
		lookPath: func(file string) (string, error) {
			return "/resolved/" + file, nil
		},
	}

	assert.Equal(t, "/resolved/ffmpeg", b.findTool("ffmpeg"))
}

func TestUpscaleWithoutToolReturnsToolNotFound(t *testing.T) {
	b := &ffmpegBackend{cfg: &config.Config{}}

	assert.False(t, b.Available())
	_, err := b.Upscale(context.Background(), "/in/photo.jpg", models.Scale2x, models.QualityBalanced, func(float64) {})
	assert.ErrorIs(t, err, enhance.ErrToolNotFound)
}

func TestProbeWithoutToolReturnsToolNotFound(t *testing.T) {
	b := &ffmpegBackend{cfg: &config.Config{}}

	_, err := b.Probe(context.Background(), "/in/photo.jpg")
	assert.ErrorIs(t, err, enhance.ErrToolNotFound)
}
