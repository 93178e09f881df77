package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/enhance"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token() (string, error) { return s.token, s.err }

func strPtr(s string) *string { return &s }

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	cfg := &config.Config{Logger: config.Logger{Encoding: "console", Level: "error"}}
	l := logger.NewApiLogger(cfg)
	l.InitLogger()
	return l
}

func newTestClient(t *testing.T, baseURL, outputDir string, tokens TokenSource, maxAttempts int) enhance.RemoteBackend {
	t.Helper()
	cfg := &config.Config{API: config.APIConfig{
		BaseURL:         baseURL,
		RequestTimeout:  5 * time.Second,
		PollInterval:    time.Millisecond,
		PollMaxAttempts: maxAttempts,
	}}
	return NewApiClient(cfg, outputDir, tokens, newTestLogger(t))
}

func writeInputImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o644))
	return path
}

func TestStartUpscaleAsync(t *testing.T) {
	var gotReq models.UpscaleRequest
	e := echo.New()
	e.POST("/api/upscale/image", func(c echo.Context) error {
		require.Equal(t, "Bearer test-token", c.Request().Header.Get("Authorization"))
		require.NoError(t, c.Bind(&gotReq))
		return c.JSON(http.StatusOK, models.UpscaleJobResponse{JobID: "job-1", Status: "processing"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "test-token"}, 60)
	job, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelClarity, models.Scale2x)
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.JobID)
	assert.False(t, job.Synchronous())
	assert.True(t, strings.HasPrefix(gotReq.Image, "data:image/jpg;base64,"))
	assert.Equal(t, "fal-ai/clarity-upscaler", gotReq.Model)
	assert.Equal(t, 2, gotReq.Scale)
}

func TestStartUpscaleSynchronousResult(t *testing.T) {
	e := echo.New()
	e.POST("/api/upscale/image", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.UpscaleJobResponse{Status: "completed", ResultURL: "https://cdn.example.com/out.png"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	job, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelESRGAN, models.Scale4x)
	require.NoError(t, err)

	assert.True(t, job.Synchronous())
	assert.Equal(t, "https://cdn.example.com/out.png", job.ResultURL)
}

func TestStartUpscaleEmptyResponse(t *testing.T) {
	e := echo.New()
	e.POST("/api/upscale/image", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.UpscaleJobResponse{})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelClarity, models.Scale2x)
	assert.ErrorIs(t, err, enhance.ErrNoResult)
}

func TestStartUpscaleStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, enhance.ErrUnauthorized},
		{http.StatusPaymentRequired, enhance.ErrInsufficientCredits},
		{http.StatusTooManyRequests, enhance.ErrRateLimited},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			e := echo.New()
			e.POST("/api/upscale/image", func(c echo.Context) error {
				return c.NoContent(tc.code)
			})
			srv := httptest.NewServer(e)
			defer srv.Close()

			client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
			_, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelClarity, models.Scale2x)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStartUpscaleServerError(t *testing.T) {
	e := echo.New()
	e.POST("/api/upscale/image", func(c echo.Context) error {
		return c.NoContent(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelClarity, models.Scale2x)

	var serverErr *enhance.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.Code)
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	var hits atomic.Int64
	e := echo.New()
	e.Any("/*", func(c echo.Context) error {
		hits.Add(1)
		return c.NoContent(http.StatusOK)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{}, 60)
	_, err := client.StartUpscale(context.Background(), writeInputImage(t), models.ModelClarity, models.Scale2x)
	assert.ErrorIs(t, err, enhance.ErrUnauthorized)

	_, err = client.PollUpscale(context.Background(), "job-1", func(float64) {})
	assert.ErrorIs(t, err, enhance.ErrUnauthorized)

	assert.Zero(t, hits.Load())
}

func TestPollUpscaleCompletesAfterProcessing(t *testing.T) {
	var polls atomic.Int64
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		require.Equal(t, "job-1", c.Param("id"))
		if polls.Add(1) < 60 {
			return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "processing"})
		}
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "completed", ResultURL: strPtr("https://cdn.example.com/out.png")})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	var seen []float64
	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	resultURL, err := client.PollUpscale(context.Background(), "job-1", func(p float64) {
		seen = append(seen, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/out.png", resultURL)
	assert.EqualValues(t, 60, polls.Load())
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.LessOrEqual(t, seen[len(seen)-1], 0.95)
}

func TestPollUpscaleTimesOut(t *testing.T) {
	var polls atomic.Int64
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		polls.Add(1)
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "processing"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 5)
	_, err := client.PollUpscale(context.Background(), "job-1", func(float64) {})

	assert.ErrorIs(t, err, enhance.ErrTimeout)
	assert.EqualValues(t, 5, polls.Load())
}

func TestPollUpscaleFailedStatus(t *testing.T) {
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "failed", Error: strPtr("gpu exploded")})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.PollUpscale(context.Background(), "job-1", func(float64) {})

	var procErr *enhance.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Detail, "gpu exploded")
}

func TestPollUpscaleCompletedWithoutResult(t *testing.T) {
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "completed"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.PollUpscale(context.Background(), "job-1", func(float64) {})
	assert.ErrorIs(t, err, enhance.ErrNoResult)
}

func TestPollUpscaleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var polls atomic.Int64
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		if polls.Add(1) == 3 {
			cancel()
		}
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "processing"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.PollUpscale(ctx, "job-1", func(float64) {})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, polls.Load(), int64(10))
}

func TestPollUpscaleUnknownStatusKeepsWaiting(t *testing.T) {
	var polls atomic.Int64
	e := echo.New()
	e.GET("/api/upscale/status/:id", func(c echo.Context) error {
		if polls.Add(1) == 1 {
			return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "warming_up"})
		}
		return c.JSON(http.StatusOK, models.JobStatusResponse{Status: "completed", ResultURL: strPtr("https://cdn.example.com/out.png")})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	resultURL, err := client.PollUpscale(context.Background(), "job-1", func(float64) {})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/out.png", resultURL)
}

func TestRemoveBackground(t *testing.T) {
	var gotReq models.RemoveBackgroundRequest
	e := echo.New()
	e.POST("/api/remove-background", func(c echo.Context) error {
		require.NoError(t, c.Bind(&gotReq))
		return c.JSON(http.StatusOK, models.RemoveBackgroundResponse{Status: "completed", ResultURL: strPtr("https://cdn.example.com/cut.png")})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	job, err := client.RemoveBackground(context.Background(), writeInputImage(t), models.RemovalBria)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/cut.png", job.ResultURL)
	assert.Equal(t, "fal-ai/bria/background/remove", gotReq.Model)
}

func TestRemoveBackgroundFailed(t *testing.T) {
	e := echo.New()
	e.POST("/api/remove-background", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.RemoveBackgroundResponse{Status: "failed", Error: strPtr("no subject found")})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.RemoveBackground(context.Background(), writeInputImage(t), models.RemovalGeneral)

	var procErr *enhance.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Detail, "no subject found")
}

func TestRemoveBackgroundMissingResult(t *testing.T) {
	e := echo.New()
	e.POST("/api/remove-background", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.RemoveBackgroundResponse{Status: "completed"})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.RemoveBackground(context.Background(), writeInputImage(t), models.RemovalGeneral)
	assert.ErrorIs(t, err, enhance.ErrNoResult)
}

func TestDownloadWritesResult(t *testing.T) {
	e := echo.New()
	e.GET("/results/out.png", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "image/png", []byte("png bytes"))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	outputDir := t.TempDir()
	client := newTestClient(t, srv.URL, outputDir, staticTokens{token: "t"}, 60)
	path, err := client.Download(context.Background(), srv.URL+"/results/out.png", "photo.jpg", enhance.RemoveBackgroundSuffix)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "photo_no_bg.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), data)
}

func TestDownloadServerError(t *testing.T) {
	e := echo.New()
	e.GET("/results/out.png", func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	_, err := client.Download(context.Background(), srv.URL+"/results/out.png", "photo.jpg", enhance.UpscaleSuffix)

	var serverErr *enhance.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusNotFound, serverErr.Code)
}

func TestFetchCredits(t *testing.T) {
	e := echo.New()
	e.GET("/api/user/credits", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.CreditsResponse{ImageCredits: 12, VideoSeconds: 480})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := newTestClient(t, srv.URL, t.TempDir(), staticTokens{token: "t"}, 60)
	image, video, err := client.FetchCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, image)
	assert.Equal(t, 480, video)
}

func TestParseRemoteState(t *testing.T) {
	for status, want := range map[string]remoteState{
		"processing": stateProcessing,
		"completed":  stateCompleted,
		"failed":     stateFailed,
	} {
		state, known := parseRemoteState(status)
		assert.True(t, known, status)
		assert.Equal(t, want, state)
	}

	state, known := parseRemoteState("something-new")
	assert.False(t, known)
	assert.Equal(t, stateWaiting, state)
}
