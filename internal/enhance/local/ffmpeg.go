package local

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/enhance"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
	"github.com/pixelift/pixelift/pkg/utils"
)

const (
	progressTickInterval = 100 * time.Millisecond
	progressTickCount    = 8
)

// Well-known install locations checked before falling back to PATH lookup.
var defaultToolPaths = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
}

type ffmpegBackend struct {
	cfg        *config.Config
	logger     logger.Logger
	outputDir  string
	ffmpegPath string
	probePath  string
	lookPath   func(file string) (string, error)
}

func NewFFmpegBackend(cfg *config.Config, outputDir string, log logger.Logger) enhance.LocalBackend {
	b := &ffmpegBackend{
		cfg:       cfg,
		logger:    log,
		outputDir: outputDir,
		lookPath:  exec.LookPath,
	}
	b.ffmpegPath = b.findTool("ffmpeg")
	b.probePath = b.findTool("ffprobe")
	return b
}

func (b *ffmpegBackend) Available() bool {
	return b.ffmpegPath != ""
}

func (b *ffmpegBackend) findTool(name string) string {
	dirs := b.cfg.FFmpeg.Paths
	if len(dirs) == 0 {
		dirs = defaultToolPaths
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if path, err := b.lookPath(name); err == nil {
		return path
	}
	return ""
}

// Probe reads pixel dimensions (and duration, for videos) via ffprobe.
func (b *ffmpegBackend) Probe(ctx context.Context, path string) (*enhance.MediaInfo, error) {
	if b.probePath == "" {
		return nil, enhance.ErrToolNotFound
	}

	cmd := exec.CommandContext(ctx, b.probePath, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height", "-of", "csv=p=0", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(enhance.ErrInvalidInput, "ffprobe: %v output: %s", err, string(output))
	}

	trimmed := strings.TrimSpace(string(output))
	trimmed = strings.TrimRight(trimmed, ",")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return nil, errors.Wrapf(enhance.ErrInvalidInput, "unexpected ffprobe output: %s", trimmed)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, errors.Wrapf(enhance.ErrInvalidInput, "invalid width: %v", err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errors.Wrapf(enhance.ErrInvalidInput, "invalid height: %v", err)
	}

	info := &enhance.MediaInfo{Width: width, Height: height}

	// Still images have no duration entry; ignore probe failures here.
	cmd = exec.CommandContext(ctx, b.probePath, "-v", "error", "-show_entries",
		"format=duration", "-of", "csv=p=0", path)
	if durationOutput, err := cmd.CombinedOutput(); err == nil {
		if d, err := strconv.ParseFloat(strings.TrimSpace(string(durationOutput)), 64); err == nil {
			info.Duration = d
		}
	}

	return info, nil
}

func (b *ffmpegBackend) Upscale(ctx context.Context, inputPath string, scale models.ScaleFactor, quality models.QualityPreset, progress enhance.ProgressFunc) (string, error) {
	if b.ffmpegPath == "" {
		return "", enhance.ErrToolNotFound
	}

	info, err := b.Probe(ctx, inputPath)
	if err != nil {
		return "", err
	}

	width, height := TargetDimensions(info, scale)

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), ".")
	outputName := utils.OutputFileName(inputPath, fmt.Sprintf("_%dx", int(scale)), ext)
	outputPath := filepath.Join(b.outputDir, outputName)

	// Overwrite semantics are explicit: clear any stale result first.
	_ = os.Remove(outputPath)

	args := buildArgs(inputPath, outputPath, width, height, quality, ext)

	if ok, usage := utils.CheckCPUUsage(b.cfg.FFmpeg.MaxCPUUsage); !ok && b.cfg.FFmpeg.MaxCPUUsage > 0 {
		b.logger.Warnf("CPU usage is high before encode: %.1f%%", usage)
	}

	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", errors.Wrap(err, "ffmpegBackend.Upscale.Start")
	}

	progress(0.1)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressTickInterval)
		defer ticker.Stop()
		for i := 1; i <= progressTickCount; i++ {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				progress(0.1 + float64(i)*0.1)
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if waitErr != nil {
		return "", &enhance.ProcessingError{Detail: strings.TrimSpace(stderr.String())}
	}

	progress(1.0)
	return outputPath, nil
}

// TargetDimensions multiplies the original dimensions by the scale factor.
func TargetDimensions(info *enhance.MediaInfo, scale models.ScaleFactor) (width, height int) {
	return info.Width * int(scale), info.Height * int(scale)
}

func buildArgs(inputPath, outputPath string, width, height int, quality models.QualityPreset, ext string) []string {
	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d:flags=%s", width, height, scaleFlag(quality)),
	}

	switch ext {
	case "jpg", "jpeg":
		// ffmpeg's JPEG quality scale is inverted: lower means better.
		args = append(args, "-q:v", jpegQuality(quality))
	case "png":
		args = append(args, "-compression_level", "6")
	case "webp":
		args = append(args, "-quality", webpQuality(quality))
	}

	return append(args, "-y", outputPath)
}

func scaleFlag(quality models.QualityPreset) string {
	switch quality {
	case models.QualityFast:
		return "bilinear"
	case models.QualityBalanced:
		return "bicubic"
	default:
		return "lanczos"
	}
}

func jpegQuality(quality models.QualityPreset) string {
	switch quality {
	case models.QualityFast:
		return "8"
	case models.QualityBalanced:
		return "4"
	default:
		return "2"
	}
}

func webpQuality(quality models.QualityPreset) string {
	switch quality {
	case models.QualityFast:
		return "75"
	case models.QualityBalanced:
		return "85"
	default:
		return "95"
	}
}
