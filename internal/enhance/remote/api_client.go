package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
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
	defaultRequestTimeout  = 45 * time.Second
	defaultPollInterval    = time.Second
	defaultPollMaxAttempts = 60

	// Poll progress is capped below completion; only a completed status may
	// drive the job to its end.
	pollProgressCap = 0.95
)

// TokenSource provides the bearer credential for API calls.
type TokenSource interface {
	Token() (string, error)
}

type remoteState int

const (
	stateWaiting remoteState = iota
	stateProcessing
	stateCompleted
	stateFailed
)

// parseRemoteState closes the loosely-typed status string at the HTTP
// boundary. Unrecognized values are treated as still waiting.
func parseRemoteState(status string) (remoteState, bool) {
	switch status {
	case "processing":
		return stateProcessing, true
	case "completed":
		return stateCompleted, true
	case "failed":
		return stateFailed, true
	default:
		return stateWaiting, false
	}
}

type apiClient struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	outputDir    string
	pollInterval time.Duration
	maxAttempts  int
	logger       logger.Logger
}

func NewApiClient(cfg *config.Config, outputDir string, tokens TokenSource, log logger.Logger) enhance.RemoteBackend {
	timeout := cfg.API.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	interval := cfg.API.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := cfg.API.PollMaxAttempts
	if attempts <= 0 {
		attempts = defaultPollMaxAttempts
	}
	return &apiClient{
		baseURL:      strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		tokens:       tokens,
		outputDir:    outputDir,
		pollInterval: interval,
		maxAttempts:  attempts,
		logger:       log,
	}
}

func (c *apiClient) StartUpscale(ctx context.Context, inputPath string, model models.UpscaleModel, scale models.ScaleFactor) (*enhance.RemoteJob, error) {
	token, err := c.bearerToken()
	if err != nil {
		return nil, err
	}

	dataURL, err := encodeDataURL(inputPath)
	if err != nil {
		return nil, err
	}

	reqBody := models.UpscaleRequest{
		Image: dataURL,
		Model: string(model),
		Scale: int(scale),
	}
	var resp models.UpscaleJobResponse
	if err := c.postJSON(ctx, "/api/upscale/image", token, reqBody, &resp); err != nil {
		return nil, err
	}

	if resp.ResultURL == "" && resp.JobID == "" {
		return nil, enhance.ErrNoResult
	}
	return &enhance.RemoteJob{JobID: resp.JobID, ResultURL: resp.ResultURL}, nil
}

func (c *apiClient) PollUpscale(ctx context.Context, jobID string, progress enhance.ProgressFunc) (string, error) {
	token, err := c.bearerToken()
	if err != nil {
		return "", err
	}

	statusURL := fmt.Sprintf("%s/api/upscale/status/%s", c.baseURL, jobID)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var status models.JobStatusResponse
		if err := c.getJSON(ctx, statusURL, token, &status); err != nil {
			return "", err
		}

		state, known := parseRemoteState(status.Status)
		if !known {
			c.logger.Warnf("PollUpscale - unrecognized status %q for job %s", status.Status, jobID)
		}

		switch state {
		case stateCompleted:
			if status.ResultURL == nil || *status.ResultURL == "" {
				return "", enhance.ErrNoResult
			}
			return *status.ResultURL, nil
		case stateFailed:
			detail := "unknown error"
			if status.Error != nil && *status.Error != "" {
				detail = *status.Error
			}
			return "", &enhance.ProcessingError{Detail: detail}
		case stateProcessing:
			progress(math.Min(float64(attempt)/float64(c.maxAttempts), pollProgressCap))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return "", enhance.ErrTimeout
}

func (c *apiClient) RemoveBackground(ctx context.Context, inputPath string, model models.RemovalModel) (*enhance.RemoteJob, error) {
	token, err := c.bearerToken()
	if err != nil {
		return nil, err
	}

	dataURL, err := encodeDataURL(inputPath)
	if err != nil {
		return nil, err
	}

	reqBody := models.RemoveBackgroundRequest{
		Image: dataURL,
		Model: model.APIModel(),
	}
	var resp models.RemoveBackgroundResponse
	if err := c.postJSON(ctx, "/api/remove-background", token, reqBody, &resp); err != nil {
		return nil, err
	}

	if state, _ := parseRemoteState(resp.Status); state == stateFailed {
		detail := "unknown error"
		if resp.Error != nil && *resp.Error != "" {
			detail = *resp.Error
		}
		return nil, &enhance.ProcessingError{Detail: detail}
	}
	if resp.ResultURL == nil || *resp.ResultURL == "" {
		return nil, enhance.ErrNoResult
	}
	return &enhance.RemoteJob{ResultURL: *resp.ResultURL}, nil
}

// Download fetches the result and writes it next to the user's other outputs.
// Results are always PNG to preserve transparency.
func (c *apiClient) Download(ctx context.Context, resultURL, originalName, suffix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "apiClient.Download.NewRequest")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "apiClient.Download.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &enhance.ServerError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "apiClient.Download.ReadAll")
	}

	outputName := utils.OutputFileName(originalName, suffix, "png")
	outputPath := filepath.Join(c.outputDir, outputName)
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", errors.Wrap(err, "apiClient.Download.WriteFile")
	}
	return outputPath, nil
}

func (c *apiClient) FetchCredits(ctx context.Context) (int, int, error) {
	token, err := c.bearerToken()
	if err != nil {
		return 0, 0, err
	}

	var resp models.CreditsResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/user/credits", token, &resp); err != nil {
		return 0, 0, err
	}
	return resp.ImageCredits, resp.VideoSeconds, nil
}

func (c *apiClient) bearerToken() (string, error) {
	if c.tokens == nil {
		return "", enhance.ErrUnauthorized
	}
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		return "", enhance.ErrUnauthorized
	}
	return token, nil
}

func (c *apiClient) postJSON(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "apiClient.postJSON.Marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "apiClient.postJSON.NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) getJSON(ctx context.Context, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "apiClient.getJSON.NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "apiClient.do")
	}
	defer resp.Body.Close()

	if err := mapStatusCode(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "apiClient.do.Decode")
	}
	return nil
}

func mapStatusCode(code int) error {
	switch {
	case code >= 200 && code <= 299:
		return nil
	case code == http.StatusUnauthorized:
		return enhance.ErrUnauthorized
	case code == http.StatusPaymentRequired:
		return enhance.ErrInsufficientCredits
	case code == http.StatusTooManyRequests:
		return enhance.ErrRateLimited
	default:
		return &enhance.ServerError{Code: code}
	}
}

func encodeDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(enhance.ErrInvalidInput, err.Error())
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return fmt.Sprintf("data:image/%s;base64,%s", ext, base64.StdEncoding.EncodeToString(data)), nil
}
