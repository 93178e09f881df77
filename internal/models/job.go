package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusUploading   JobStatus = "uploading"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobKind string

const (
	JobKindUpscale          JobKind = "upscale"
	JobKindRemoveBackground JobKind = "remove_background"
)

type UpscaleModel string

const (
	ModelLocal    UpscaleModel = "local"
	ModelClarity  UpscaleModel = "fal-ai/clarity-upscaler"
	ModelCreative UpscaleModel = "fal-ai/creative-upscaler"
	ModelESRGAN   UpscaleModel = "fal-ai/real-esrgan"
)

func (m UpscaleModel) Valid() bool {
	switch m {
	case ModelLocal, ModelClarity, ModelCreative, ModelESRGAN:
		return true
	}
	return false
}

// RequiresCredits reports whether the model runs on the remote API and
// therefore consumes a paid credit. Local processing is always free.
func (m UpscaleModel) RequiresCredits() bool {
	return m != ModelLocal
}

type ScaleFactor int

const (
	Scale2x ScaleFactor = 2
	Scale4x ScaleFactor = 4
	Scale8x ScaleFactor = 8
)

func (s ScaleFactor) Valid() bool {
	return s == Scale2x || s == Scale4x || s == Scale8x
}

type QualityPreset string

const (
	QualityFast     QualityPreset = "fast"
	QualityBalanced QualityPreset = "balanced"
	QualityBest     QualityPreset = "quality"
)

func (q QualityPreset) Valid() bool {
	return q == QualityFast || q == QualityBalanced || q == QualityBest
}

type RemovalModel string

const (
	RemovalPortrait RemovalModel = "portrait"
	RemovalGeneral  RemovalModel = "general"
	RemovalHeavy    RemovalModel = "heavy"
	RemovalBria     RemovalModel = "bria"
)

func (m RemovalModel) Valid() bool {
	switch m {
	case RemovalPortrait, RemovalGeneral, RemovalHeavy, RemovalBria:
		return true
	}
	return false
}

// APIModel maps the user-facing variant to the model identifier the remote
// API expects.
func (m RemovalModel) APIModel() string {
	if m == RemovalBria {
		return "fal-ai/bria/background/remove"
	}
	return "fal-ai/birefnet"
}

type Job struct {
	JobID        string        `json:"job_id"`
	Kind         JobKind       `json:"kind"`
	InputPath    string        `json:"input_path"`
	OutputPath   string        `json:"output_path,omitempty"`
	Model        UpscaleModel  `json:"model,omitempty"`
	RemovalModel RemovalModel  `json:"removal_model,omitempty"`
	Scale        ScaleFactor   `json:"scale,omitempty"`
	Quality      QualityPreset `json:"quality,omitempty"`
	Status       JobStatus     `json:"status"`
	Progress     float64       `json:"progress"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  time.Time     `json:"completed_at,omitempty"`
}

func NewUpscaleJob(inputPath string, model UpscaleModel, scale ScaleFactor, quality QualityPreset) *Job {
	return &Job{
		JobID:     uuid.New().String(),
		Kind:      JobKindUpscale,
		InputPath: inputPath,
		Model:     model,
		Scale:     scale,
		Quality:   quality,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

func NewRemoveBackgroundJob(inputPath string, model RemovalModel) *Job {
	return &Job{
		JobID:        uuid.New().String(),
		Kind:         JobKindRemoveBackground,
		InputPath:    inputPath,
		RemovalModel: model,
		Status:       JobStatusPending,
		CreatedAt:    time.Now(),
	}
}

type UpscaleInput struct {
	InputPath string        `json:"input_path" validate:"required"`
	Model     UpscaleModel  `json:"model" validate:"required"`
	Scale     ScaleFactor   `json:"scale" validate:"required"`
	Quality   QualityPreset `json:"quality" validate:"required"`
}

type RemoveBackgroundInput struct {
	InputPath string       `json:"input_path" validate:"required"`
	Model     RemovalModel `json:"model" validate:"required"`
}
