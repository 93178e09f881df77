package usecase

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/credits"
	"github.com/pixelift/pixelift/internal/enhance"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
	"github.com/pixelift/pixelift/pkg/utils"
)

// Fixed phase boundaries for remote jobs: upload ends at 0.3, processing
// spans 0.3-0.9, download and finalize span 0.9-1.0.
const (
	uploadPhaseEnd     = 0.3
	processingPhaseEnd = 0.9
)

type enhanceUC struct {
	cfg    *config.Config
	local  enhance.LocalBackend
	remote enhance.RemoteBackend
	ledger credits.UseCase
	logger logger.Logger

	mu           sync.Mutex
	current      *models.Job
	cancel       context.CancelFunc
	inFlight     bool
	lastProgress float64
	stateFn      enhance.StateFunc
}

func NewEnhanceUseCase(
	cfg *config.Config,
	local enhance.LocalBackend,
	remote enhance.RemoteBackend,
	ledger credits.UseCase,
	log logger.Logger,
) enhance.UseCase {
	return &enhanceUC{
		cfg:    cfg,
		local:  local,
		remote: remote,
		ledger: ledger,
		logger: log,
	}
}

func (u *enhanceUC) Upscale(ctx context.Context, input *models.UpscaleInput, progress enhance.ProgressFunc) (string, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("Upscale - ValidateStruct error: %v", err)
		return "", errors.Wrap(enhance.ErrInvalidInput, err.Error())
	}
	if !input.Model.Valid() || !input.Scale.Valid() || !input.Quality.Valid() {
		return "", errors.Wrap(enhance.ErrInvalidInput, "unknown model, scale or quality")
	}
	if _, err := os.Stat(input.InputPath); err != nil {
		return "", errors.Wrap(enhance.ErrInvalidInput, err.Error())
	}

	job := models.NewUpscaleJob(input.InputPath, input.Model, input.Scale, input.Quality)
	jctx, err := u.begin(ctx, job)
	if err != nil {
		return "", err
	}
	defer u.end()
	emit := u.progressEmitter(jctx, progress)

	var outputPath string
	if input.Model == models.ModelLocal {
		u.setStatus(models.JobStatusProcessing)
		outputPath, err = u.local.Upscale(jctx, input.InputPath, input.Scale, input.Quality, emit)
	} else {
		outputPath, err = u.runRemoteUpscale(jctx, input, emit)
	}

	if err != nil {
		u.fail(err)
		return "", err
	}
	u.complete(outputPath)
	return outputPath, nil
}

func (u *enhanceUC) RemoveBackground(ctx context.Context, input *models.RemoveBackgroundInput, progress enhance.ProgressFunc) (string, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("RemoveBackground - ValidateStruct error: %v", err)
		return "", errors.Wrap(enhance.ErrInvalidInput, err.Error())
	}
	if !input.Model.Valid() {
		return "", errors.Wrap(enhance.ErrInvalidInput, "unknown background removal model")
	}
	if _, err := os.Stat(input.InputPath); err != nil {
		return "", errors.Wrap(enhance.ErrInvalidInput, err.Error())
	}
	if utils.MediaKind(input.InputPath) != models.MediaKindImage {
		return "", errors.Wrap(enhance.ErrInvalidInput, "background removal supports images only")
	}

	job := models.NewRemoveBackgroundJob(input.InputPath, input.Model)
	jctx, err := u.begin(ctx, job)
	if err != nil {
		return "", err
	}
	defer u.end()
	emit := u.progressEmitter(jctx, progress)

	outputPath, err := u.withCredit(func() (string, error) {
		u.setStatus(models.JobStatusUploading)
		emit(0.1)

		rjob, err := u.remote.RemoveBackground(jctx, input.InputPath, input.Model)
		if err != nil {
			return "", err
		}
		emit(uploadPhaseEnd)
		u.setStatus(models.JobStatusProcessing)

		resultURL := rjob.ResultURL
		if !rjob.Synchronous() {
			resultURL, err = u.remote.PollUpscale(jctx, rjob.JobID, u.processingEmitter(emit))
			if err != nil {
				return "", err
			}
		}

		u.setStatus(models.JobStatusDownloading)
		emit(processingPhaseEnd)
		out, err := u.remote.Download(jctx, resultURL, input.InputPath, enhance.RemoveBackgroundSuffix)
		if err != nil {
			return "", err
		}
		emit(1.0)
		return out, nil
	})

	if err != nil {
		u.fail(err)
		return "", err
	}
	u.complete(outputPath)
	return outputPath, nil
}

func (u *enhanceUC) runRemoteUpscale(jctx context.Context, input *models.UpscaleInput, emit enhance.ProgressFunc) (string, error) {
	if utils.MediaKind(input.InputPath) != models.MediaKindImage {
		return "", errors.Wrap(enhance.ErrInvalidInput, "remote models support images only")
	}
	if input.Scale == models.Scale8x {
		return "", errors.Wrap(enhance.ErrInvalidInput, "remote models support 2x and 4x only")
	}

	return u.withCredit(func() (string, error) {
		u.setStatus(models.JobStatusUploading)
		emit(0.1)

		rjob, err := u.remote.StartUpscale(jctx, input.InputPath, input.Model, input.Scale)
		if err != nil {
			return "", err
		}
		emit(uploadPhaseEnd)
		u.setStatus(models.JobStatusProcessing)

		resultURL := rjob.ResultURL
		if !rjob.Synchronous() {
			resultURL, err = u.remote.PollUpscale(jctx, rjob.JobID, u.processingEmitter(emit))
			if err != nil {
				return "", err
			}
		}

		u.setStatus(models.JobStatusDownloading)
		emit(processingPhaseEnd)
		out, err := u.remote.Download(jctx, resultURL, input.InputPath, enhance.UpscaleSuffix)
		if err != nil {
			return "", err
		}
		emit(1.0)
		return out, nil
	})
}

// withCredit wraps a remote run with the ledger gate: one deduction up front,
// exactly one refund if the run does not complete.
func (u *enhanceUC) withCredit(run func() (string, error)) (string, error) {
	if !u.ledger.DeductImageCredit() {
		return "", enhance.ErrInsufficientCredits
	}
	out, err := run()
	if err != nil {
		u.ledger.RefundImageCredit()
		return "", err
	}
	return out, nil
}

func (u *enhanceUC) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inFlight && u.cancel != nil {
		u.cancel()
	}
}

func (u *enhanceUC) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inFlight {
		return
	}
	u.current = nil
	u.lastProgress = 0
}

func (u *enhanceUC) Current() *models.Job {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == nil {
		return nil
	}
	snapshot := *u.current
	return &snapshot
}

func (u *enhanceUC) SetStateListener(fn enhance.StateFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stateFn = fn
}

func (u *enhanceUC) begin(ctx context.Context, job *models.Job) (context.Context, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inFlight {
		return nil, enhance.ErrJobInFlight
	}
	jctx, cancel := context.WithCancel(ctx)
	u.inFlight = true
	u.current = job
	u.cancel = cancel
	u.lastProgress = 0
	u.notifyLocked()
	return jctx, nil
}

func (u *enhanceUC) end() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
	u.inFlight = false
}

func (u *enhanceUC) setStatus(status models.JobStatus) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == nil || u.current.Status.IsTerminal() {
		return
	}
	u.current.Status = status
	u.notifyLocked()
}

func (u *enhanceUC) complete(outputPath string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == nil {
		return
	}
	u.current.Status = models.JobStatusCompleted
	u.current.OutputPath = outputPath
	u.current.CompletedAt = time.Now()
	u.notifyLocked()
}

func (u *enhanceUC) fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		u.current.Status = models.JobStatusCancelled
	} else {
		u.current.Status = models.JobStatusFailed
		u.current.Error = err.Error()
	}
	u.current.CompletedAt = time.Now()
	u.notifyLocked()
}

// notifyLocked snapshots the job and fires the state listener. Callers hold
// the mutex.
func (u *enhanceUC) notifyLocked() {
	if u.stateFn == nil || u.current == nil {
		return
	}
	u.stateFn(*u.current)
}

// progressEmitter clamps progress to be monotonically non-decreasing within
// the job and drops callbacks once the job is cancelled or terminal.
func (u *enhanceUC) progressEmitter(jctx context.Context, progress enhance.ProgressFunc) enhance.ProgressFunc {
	return func(p float64) {
		u.mu.Lock()
		if jctx.Err() != nil || u.current == nil || u.current.Status.IsTerminal() || p <= u.lastProgress {
			u.mu.Unlock()
			return
		}
		u.lastProgress = p
		u.current.Progress = p
		u.mu.Unlock()

		if progress != nil {
			progress(p)
		}
	}
}

// processingEmitter rescales backend-local poll progress into the processing
// phase of the overall range.
func (u *enhanceUC) processingEmitter(emit enhance.ProgressFunc) enhance.ProgressFunc {
	return func(p float64) {
		emit(uploadPhaseEnd + p*(processingPhaseEnd-uploadPhaseEnd))
	}
}
