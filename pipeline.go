package main

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PuzzleSource produces the riddles and background for a puzzle.
// *GeminiClient is the production implementation.
type PuzzleSource interface {
	RequestRiddles(ctx context.Context, words [3]string) (*GeneratedContent, error)
	RequestBackground(ctx context.Context, imagePrompt string) (*EncodedImage, error)
}

// GeneratorOptions tune a Generator.
type GeneratorOptions struct {
	Fillers    []string
	Background bool
	Timeout    time.Duration
}

// Generator runs the generation steps in order and publishes the result to
// the Store. Only one generation runs at a time.
type Generator struct {
	source   PuzzleSource
	renderer *Renderer
	store    *Store
	logger   *zap.Logger
	opts     GeneratorOptions

	inFlight atomic.Bool
}

// NewGenerator wires a generator. A nil Fillers list uses the built-in vocabulary.
func NewGenerator(source PuzzleSource, renderer *Renderer, store *Store, logger *zap.Logger, opts GeneratorOptions) *Generator {
	if opts.Fillers == nil {
		opts.Fillers = DefaultFillers()
	}
	return &Generator{
		source:   source,
		renderer: renderer,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

// Result is a successful generation.
type Result struct {
	Puzzle *PuzzleData
	PNG    []byte
}

// Busy reports whether a generation is running.
func (g *Generator) Busy() bool {
	return g.inFlight.Load()
}

// Generate builds a new puzzle from three words. progress, if not nil, is
// called when each step starts. On any error the Store is left untouched.
func (g *Generator) Generate(ctx context.Context, words [3]string, progress func(Step)) (*Result, error) {
	words, err := normalizeWords(words)
	if err != nil {
		return nil, err
	}
	if err := checkDistinct(words); err != nil {
		return nil, genErr(StepGrid, err)
	}

	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer g.inFlight.Store(false)

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	notify := func(s Step) {
		if progress != nil {
			progress(s)
		}
	}

	start := time.Now()
	log := g.logger.With(zap.Strings("words", words[:]))

	notify(StepRiddles)
	content, err := g.source.RequestRiddles(ctx, words)
	if err != nil {
		return nil, genErr(StepRiddles, err)
	}
	log.Debug("Riddles generated", zap.String("image_prompt", content.ImagePrompt))

	var (
		bg   *EncodedImage
		grid [GridSize]string
	)
	eg, egCtx := errgroup.WithContext(ctx)
	if g.opts.Background {
		notify(StepBackground)
		eg.Go(func() error {
			img, err := g.source.RequestBackground(egCtx, content.ImagePrompt)
			if err != nil {
				return genErr(StepBackground, err)
			}
			bg = img
			return nil
		})
	}
	notify(StepGrid)
	eg.Go(func() error {
		gr, err := BuildGrid(words, g.opts.Fillers)
		if err != nil {
			return genErr(StepGrid, err)
		}
		grid = gr
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	puzzle, err := NewPuzzleData(words, grid, content.Riddles, bg)
	if err != nil {
		return nil, genErr(StepAssemble, err)
	}

	notify(StepRender)
	png, err := g.renderer.RenderPNG(puzzle)
	if err != nil {
		return nil, genErr(StepRender, err)
	}

	g.store.Replace(puzzle, png)

	log.Info("Puzzle generated",
		zap.String("puzzle_id", puzzle.ID),
		zap.Bool("background", puzzle.HasBackground()),
		zap.Int("png_bytes", len(png)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Puzzle: puzzle, PNG: png}, nil
}
