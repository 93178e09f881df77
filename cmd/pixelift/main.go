package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pixelift/pixelift/internal/auth"
	authRepository "github.com/pixelift/pixelift/internal/auth/repository"
	authUseCase "github.com/pixelift/pixelift/internal/auth/usecase"
	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/credits"
	creditsRepository "github.com/pixelift/pixelift/internal/credits/repository"
	creditsUseCase "github.com/pixelift/pixelift/internal/credits/usecase"
	"github.com/pixelift/pixelift/internal/enhance"
	"github.com/pixelift/pixelift/internal/enhance/local"
	"github.com/pixelift/pixelift/internal/enhance/remote"
	enhanceUseCase "github.com/pixelift/pixelift/internal/enhance/usecase"
	"github.com/pixelift/pixelift/internal/history"
	historyRepository "github.com/pixelift/pixelift/internal/history/repository"
	historyUseCase "github.com/pixelift/pixelift/internal/history/usecase"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/db/sqlite"
	"github.com/pixelift/pixelift/pkg/logger"
	"github.com/pixelift/pixelift/pkg/utils"
)

func main() {
	var (
		configFile = flag.String("config", "config.yml", "path to config file")
		op         = flag.String("op", "upscale", "operation: upscale | removebg | signin | credits | history")
		input      = flag.String("input", "", "input file path")
		model      = flag.String("model", string(models.ModelLocal), "upscale model or background removal model")
		scale      = flag.Int("scale", 2, "scale factor: 2, 4 or 8")
		quality    = flag.String("quality", string(models.QualityBalanced), "quality preset: fast | balanced | quality")
		query      = flag.String("query", "", "history filename filter")
		idToken    = flag.String("identity-token", "", "apple identity token (signin)")
		userID     = flag.String("user-id", "", "apple user id (signin)")
		email      = flag.String("email", "", "email (signin, optional)")
	)
	flag.Parse()

	cfgFile, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.App.AppVersion, cfg.Logger.Level, cfg.App.Mode)

	db, err := sqlite.NewSqliteDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not open local store: %s", err)
	}
	defer db.Close()

	outputDir, err := utils.DefaultOutputDir(cfg.Output.Dir)
	if err != nil {
		appLogger.Fatalf("could not resolve output dir: %s", err)
	}

	authUC, err := authUseCase.NewAuthUseCase(cfg, authRepository.NewAuthRepository(db), appLogger)
	if err != nil {
		appLogger.Fatalf("could not init auth: %s", err)
	}
	ledger, err := creditsUseCase.NewCreditsUseCase(creditsRepository.NewCreditsRepository(db), appLogger)
	if err != nil {
		appLogger.Fatalf("could not init credit ledger: %s", err)
	}
	historyUC, err := historyUseCase.NewHistoryUseCase(historyRepository.NewHistoryRepository(db), appLogger)
	if err != nil {
		appLogger.Fatalf("could not init history: %s", err)
	}

	localBackend := local.NewFFmpegBackend(cfg, outputDir, appLogger)
	remoteBackend := remote.NewApiClient(cfg, outputDir, authUC, appLogger)
	enhancer := enhanceUseCase.NewEnhanceUseCase(cfg, localBackend, remoteBackend, ledger, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		enhancer.Cancel()
	}()

	switch *op {
	case "upscale":
		runUpscale(ctx, enhancer, localBackend, historyUC, appLogger, *input, *model, *scale, *quality)
	case "removebg":
		runRemoveBackground(ctx, enhancer, localBackend, historyUC, appLogger, *input, *model)
	case "signin":
		runSignIn(ctx, authUC, appLogger, *idToken, *userID, *email)
	case "credits":
		runCredits(ctx, remoteBackend, ledger, appLogger)
	case "history":
		runHistory(historyUC, *query)
	default:
		appLogger.Fatalf("unknown operation: %s", *op)
	}
}

func runUpscale(
	ctx context.Context,
	enhancer enhance.UseCase,
	prober enhance.LocalBackend,
	historyUC history.UseCase,
	appLogger logger.Logger,
	input, model string, scale int, quality string,
) {
	if input == "" {
		appLogger.Fatal("upscale requires -input")
	}

	req := &models.UpscaleInput{
		InputPath: input,
		Model:     models.UpscaleModel(model),
		Scale:     models.ScaleFactor(scale),
		Quality:   models.QualityPreset(quality),
	}

	start := time.Now()
	outputPath, err := enhancer.Upscale(ctx, req, printProgress)
	fmt.Println()
	if err != nil {
		appLogger.Fatalf("upscale failed: %s", err)
	}
	appLogger.Infof("upscaled %s -> %s in %s", input, outputPath, time.Since(start))

	recordHistory(ctx, prober, historyUC, appLogger, input, outputPath, string(req.Model), req.Scale, req.Quality, time.Since(start))
}

func runRemoveBackground(
	ctx context.Context,
	enhancer enhance.UseCase,
	prober enhance.LocalBackend,
	historyUC history.UseCase,
	appLogger logger.Logger,
	input, model string,
) {
	if input == "" {
		appLogger.Fatal("removebg requires -input")
	}

	req := &models.RemoveBackgroundInput{
		InputPath: input,
		Model:     models.RemovalModel(model),
	}

	start := time.Now()
	outputPath, err := enhancer.RemoveBackground(ctx, req, printProgress)
	fmt.Println()
	if err != nil {
		appLogger.Fatalf("background removal failed: %s", err)
	}
	appLogger.Infof("removed background %s -> %s in %s", input, outputPath, time.Since(start))

	recordHistory(ctx, prober, historyUC, appLogger, input, outputPath, string(req.Model), 0, "", time.Since(start))
}

func recordHistory(
	ctx context.Context,
	prober enhance.LocalBackend,
	historyUC history.UseCase,
	appLogger logger.Logger,
	inputPath, outputPath, model string,
	scale models.ScaleFactor,
	quality models.QualityPreset,
	duration time.Duration,
) {
	entry := models.HistoryEntry{
		EntryID:          uuid.New().String(),
		OriginalFileName: filepath.Base(inputPath),
		OriginalPath:     inputPath,
		ProcessedPath:    outputPath,
		Model:            model,
		Scale:            scale,
		Quality:          quality,
		ProcessingTime:   duration,
		Timestamp:        time.Now(),
		Kind:             utils.MediaKind(inputPath),
	}
	if prober.Available() {
		if info, err := prober.Probe(ctx, inputPath); err == nil {
			entry.OriginalWidth, entry.OriginalHeight = info.Width, info.Height
		}
		if info, err := prober.Probe(ctx, outputPath); err == nil {
			entry.ProcessedWidth, entry.ProcessedHeight = info.Width, info.Height
		}
	}
	if err := historyUC.Add(entry); err != nil {
		appLogger.Errorf("could not record history entry: %s", err)
	}
}

func runSignIn(ctx context.Context, authUC auth.UseCase, appLogger logger.Logger, idToken, userID, email string) {
	if idToken == "" || userID == "" {
		appLogger.Fatal("signin requires -identity-token and -user-id")
	}
	user, err := authUC.SignIn(ctx, idToken, userID, email)
	if err != nil {
		appLogger.Fatalf("sign in failed: %s", err)
	}
	appLogger.Infof("signed in as %s", user.UserID)
}

func runCredits(ctx context.Context, remoteBackend enhance.RemoteBackend, ledger credits.UseCase, appLogger logger.Logger) {
	image, video, err := remoteBackend.FetchCredits(ctx)
	if err != nil {
		appLogger.Warnf("could not refresh credits from server: %s", err)
	} else if err := ledger.SetBalances(image, video); err != nil {
		appLogger.Errorf("could not persist refreshed credits: %s", err)
	}
	image, video = ledger.Balances()
	fmt.Printf("image credits: %d\nvideo seconds: %d\n", image, video)
}

func runHistory(historyUC history.UseCase, query string) {
	entries := historyUC.Search(query)
	if len(entries) == 0 {
		fmt.Println("no history entries")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %dx%d -> %dx%d  %s  %s\n",
			e.Timestamp.Format(time.RFC3339), e.OriginalFileName,
			e.OriginalWidth, e.OriginalHeight, e.ProcessedWidth, e.ProcessedHeight,
			e.Model, e.ProcessingTime.Round(time.Millisecond))
	}
}

func printProgress(p float64) {
	fmt.Printf("\rprogress: %3.0f%%", p*100)
	_ = os.Stdout.Sync()
}
