package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	wordsFlag := flag.String("words", "", "comma-separated target words; generates one puzzle and exits")
	outFlag := flag.String("out", downloadFilename, "output PNG path used with -words")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := NewLogger(cfg.DevMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *wordsFlag != "" {
		return runOnce(ctx, cfg, logger, *wordsFlag, *outFlag)
	}

	if err := runServer(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return 1
	}
	return 0
}

// buildGenerator wires the pipeline. It returns a nil Generator when no
// Gemini credential is configured.
func buildGenerator(ctx context.Context, cfg *Config, store *Store, logger *zap.Logger) (*Generator, func(), error) {
	fillers, err := LoadFillers(cfg.FillerWordsFile)
	if err != nil {
		return nil, nil, err
	}

	renderer, err := NewRenderer(logger)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.HasCredentials() {
		return nil, func() {}, nil
	}

	gemini, err := NewGeminiClient(ctx, cfg.Gemini())
	if err != nil {
		return nil, nil, err
	}

	gen := NewGenerator(gemini, renderer, store, logger, GeneratorOptions{
		Fillers:    fillers,
		Background: cfg.Background,
		Timeout:    cfg.GenerateTimeout,
	})
	return gen, func() { gemini.Close() }, nil
}

func runServer(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	store := NewStore()

	gen, closeGen, err := buildGenerator(ctx, cfg, store, logger)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	defer closeGen()

	if gen == nil {
		logger.Warn("GEMINI_API_KEY and GCP_PROJECT_ID not set, puzzle generation disabled")
	} else {
		logger.Info("Gemini client initialized",
			zap.String("text_model", cfg.TextModel),
			zap.String("image_model", cfg.ImageModel),
			zap.Bool("background", cfg.Background),
		)
	}

	handler := NewServer(store, gen, logger, ServerOptions{TrustProxy: cfg.TrustProxy})
	defer handler.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("url", "http://localhost:"+cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runOnce generates a single puzzle and writes it to out.
func runOnce(ctx context.Context, cfg *Config, logger *zap.Logger, wordList, out string) int {
	parts := strings.Split(wordList, ",")
	if len(parts) != 3 {
		color.Red("Expected exactly three comma-separated words, got %d", len(parts))
		return 2
	}
	words := [3]string{parts[0], parts[1], parts[2]}

	gen, closeGen, err := buildGenerator(ctx, cfg, NewStore(), logger)
	if err != nil {
		color.Red("Setup failed: %v", err)
		return 1
	}
	defer closeGen()
	if gen == nil {
		color.Red("Set GEMINI_API_KEY or GCP_PROJECT_ID to generate puzzles")
		return 1
	}

	step := color.New(color.FgCyan)
	result, err := gen.Generate(ctx, words, func(s Step) {
		step.Println(s.Message())
	})
	if errors.Is(err, ErrMissingWords) {
		color.Yellow("All three words must be filled in")
		return 2
	}
	if err != nil {
		logger.Error("Puzzle generation failed", zap.Error(err))
		color.Red(genericFailure)
		return 1
	}

	if err := os.WriteFile(out, result.PNG, 0o644); err != nil {
		color.Red("Write %s: %v", out, err)
		return 1
	}

	color.Green("Puzzle saved to %s", out)
	for i, r := range result.Puzzle.Riddles {
		fmt.Printf("  %d. %s (%s)\n", i+1, r.Question, color.New(color.Bold).Sprint(strings.ToUpper(r.Word)))
	}
	return 0
}
