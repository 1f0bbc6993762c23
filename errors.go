package main

import (
	"errors"
	"fmt"
)

// Step names one stage of the generation pipeline.
type Step string

const (
	StepRiddles    Step = "riddles"
	StepBackground Step = "background"
	StepGrid       Step = "grid"
	StepAssemble   Step = "assemble"
	StepRender     Step = "render"
)

// Message is the loading text shown to the user while the step runs.
func (s Step) Message() string {
	switch s {
	case StepRiddles:
		return "Asking Gemini for some fun riddles..."
	case StepBackground:
		return "Drawing a magical background..."
	case StepGrid:
		return "Mixing the words into the grid..."
	case StepRender:
		return "Painting your puzzle..."
	default:
		return ""
	}
}

var (
	// ErrNoImageData is returned when the image model answered without any inline image.
	ErrNoImageData = errors.New("no image data found in response")

	// ErrBusy is returned when a generation is already running.
	ErrBusy = errors.New("a puzzle is already being generated")
)

// GenerationError reports a failed pipeline step. Users only ever see a
// generic message; Step and Err are for logs.
type GenerationError struct {
	Step Step
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func genErr(step Step, err error) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Step: step, Err: err}
}
