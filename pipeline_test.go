package main

import (
	"context"
	"errors"
	"image/color"
	"runtime"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeSource is an in-memory PuzzleSource.
type fakeSource struct {
	mu          sync.Mutex
	riddleErr   error
	bgErr       error
	bg          *EncodedImage
	riddleCalls int
	bgCalls     int
	gate        chan struct{} // when set, RequestRiddles waits on it
}

func (f *fakeSource) RequestRiddles(ctx context.Context, words [3]string) (*GeneratedContent, error) {
	f.mu.Lock()
	f.riddleCalls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.riddleErr != nil {
		return nil, f.riddleErr
	}
	riddles := make([]Riddle, len(words))
	for i, w := range words {
		riddles[i] = Riddle{Word: w, Question: "Can you find the " + w + "?"}
	}
	return &GeneratedContent{Riddles: riddles, ImagePrompt: "a pastel meadow"}, nil
}

func (f *fakeSource) RequestBackground(_ context.Context, _ string) (*EncodedImage, error) {
	f.mu.Lock()
	f.bgCalls++
	f.mu.Unlock()
	if f.bgErr != nil {
		return nil, f.bgErr
	}
	return f.bg, nil
}

func newTestGenerator(t *testing.T, src PuzzleSource, background bool) (*Generator, *Store) {
	t.Helper()
	store := NewStore()
	gen := NewGenerator(src, newTestRenderer(t), store, zap.NewNop(), GeneratorOptions{Background: background})
	return gen, store
}

func TestGenerateSuccess(t *testing.T) {
	src := &fakeSource{bg: &EncodedImage{MIMEType: "image/png", Data: solidPNG(t, color.RGBA{0, 0, 255, 255})}}
	gen, store := newTestGenerator(t, src, true)

	var steps []Step
	res, err := gen.Generate(context.Background(), [3]string{" dragon ", "castle", "fairy"}, func(s Step) {
		steps = append(steps, s)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := res.Puzzle
	if p.TargetWords[0] != "dragon" {
		t.Fatalf("expected trimmed word, got %q", p.TargetWords[0])
	}
	if len(p.Riddles) != 3 || !p.HasBackground() {
		t.Fatalf("incomplete puzzle: %+v", p)
	}
	decodePNG(t, res.PNG)

	cur, data := store.Image()
	if cur != p || len(data) != len(res.PNG) {
		t.Fatal("store does not hold the new puzzle")
	}

	want := []Step{StepRiddles, StepBackground, StepGrid, StepRender}
	if len(steps) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected steps %v, got %v", want, steps)
		}
	}
	if gen.Busy() {
		t.Fatal("in-flight flag not released")
	}
}

func TestGenerateWithoutBackground(t *testing.T) {
	src := &fakeSource{}
	gen, _ := newTestGenerator(t, src, false)

	res, err := gen.Generate(context.Background(), testWords, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Puzzle.HasBackground() {
		t.Fatal("background should be absent")
	}
	if src.bgCalls != 0 {
		t.Fatal("background must not be requested when disabled")
	}
}

func TestGenerateMissingWords(t *testing.T) {
	src := &fakeSource{}
	gen, _ := newTestGenerator(t, src, true)

	_, err := gen.Generate(context.Background(), [3]string{"dragon", "  ", "fairy"}, nil)
	if !errors.Is(err, ErrMissingWords) {
		t.Fatalf("expected ErrMissingWords, got %v", err)
	}
	if src.riddleCalls != 0 {
		t.Fatal("no external call should happen on validation failure")
	}
}

func TestGenerateFailureKeepsPreviousPuzzle(t *testing.T) {
	src := &fakeSource{}
	gen, store := newTestGenerator(t, src, false)

	first, err := gen.Generate(context.Background(), testWords, nil)
	if err != nil {
		t.Fatalf("first generation: %v", err)
	}

	src.riddleErr = &GenerationError{Step: StepRiddles, Err: errors.New("response has no imagePrompt")}
	_, err = gen.Generate(context.Background(), [3]string{"sun", "moon", "star"}, nil)
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Step != StepRiddles {
		t.Fatalf("expected riddles GenerationError, got %v", err)
	}
	if store.Current() != first.Puzzle {
		t.Fatal("failed generation replaced the stored puzzle")
	}
}

func TestGenerateBackgroundFailure(t *testing.T) {
	src := &fakeSource{bgErr: ErrNoImageData}
	gen, store := newTestGenerator(t, src, true)

	_, err := gen.Generate(context.Background(), testWords, nil)
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Step != StepBackground || !errors.Is(err, ErrNoImageData) {
		t.Fatalf("expected background GenerationError, got %v", err)
	}
	if store.Current() != nil {
		t.Fatal("no partial puzzle may be stored")
	}
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	gen, _ := newTestGenerator(t, src, false)

	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), testWords, nil)
		done <- err
	}()

	// Wait until the first run holds the flag.
	for !gen.Busy() {
		runtime.Gosched()
	}

	if _, err := gen.Generate(context.Background(), testWords, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if gen.Busy() {
		t.Fatal("flag not released")
	}
}

func TestGenerateDuplicateWordsSkipsRequests(t *testing.T) {
	src := &fakeSource{}
	gen, store := newTestGenerator(t, src, true)

	var steps []Step
	_, err := gen.Generate(context.Background(), [3]string{"cat", "Cat ", "dog"}, func(s Step) {
		steps = append(steps, s)
	})
	if !errors.Is(err, ErrDuplicateWords) {
		t.Fatalf("expected ErrDuplicateWords, got %v", err)
	}
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Step != StepGrid {
		t.Fatalf("expected grid GenerationError, got %v", err)
	}
	if src.riddleCalls != 0 || src.bgCalls != 0 || len(steps) != 0 {
		t.Fatalf("expected no requests and no progress, got %d/%d calls, steps %v", src.riddleCalls, src.bgCalls, steps)
	}
	if store.Current() != nil || gen.Busy() {
		t.Fatal("rejected words must leave no state behind")
	}
}

func TestGenerateAnnouncesGridBeforeItRuns(t *testing.T) {
	release := make(chan struct{})
	src := &slowBackgroundSource{release: release}
	gen, _ := newTestGenerator(t, src, true)

	gridAnnounced := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), testWords, func(s Step) {
			if s == StepGrid {
				close(gridAnnounced)
			}
		})
		done <- err
	}()

	// The background request is still blocked, yet the grid step has started.
	<-gridAnnounced
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// slowBackgroundSource holds RequestBackground until release is closed.
type slowBackgroundSource struct {
	fakeSource
	release chan struct{}
}

func (s *slowBackgroundSource) RequestBackground(ctx context.Context, prompt string) (*EncodedImage, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fakeSource.RequestBackground(ctx, prompt)
}
