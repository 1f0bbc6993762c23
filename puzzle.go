package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GridSize is the number of slots in the 4x4 word grid.
const GridSize = 16

// ErrMissingWords is returned when one of the three target words is blank.
var ErrMissingWords = errors.New("three non-empty words are required")

// ErrDuplicateWords is returned when two target words are equal ignoring case.
var ErrDuplicateWords = errors.New("target words must be different")

// Riddle pairs a target word with the clue question for it.
type Riddle struct {
	Word     string `json:"word"`
	Question string `json:"question"`
}

// GeneratedContent is the structured answer of the text model.
// It is consumed once to build a PuzzleData.
type GeneratedContent struct {
	Riddles     []Riddle `json:"riddles"`
	ImagePrompt string   `json:"imagePrompt"`
}

// EncodedImage is a self-contained image payload returned by the image model.
type EncodedImage struct {
	MIMEType string
	Data     []byte
}

// DataURL returns the image as a data: URL usable directly as an <img> source.
func (e *EncodedImage) DataURL() string {
	return "data:" + e.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// PuzzleData is one finished puzzle. It is never mutated after NewPuzzleData
// returns; a new generation produces a new value.
type PuzzleData struct {
	ID          string           `json:"id"`
	TargetWords [3]string        `json:"targetWords"`
	Grid        [GridSize]string `json:"grid"`
	Riddles     []Riddle         `json:"riddles"`
	Background  *EncodedImage    `json:"-"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewPuzzleData assembles a puzzle and checks its invariants.
func NewPuzzleData(words [3]string, grid [GridSize]string, riddles []Riddle, bg *EncodedImage) (*PuzzleData, error) {
	if len(riddles) != len(words) {
		return nil, fmt.Errorf("expected %d riddles, got %d", len(words), len(riddles))
	}

	seen := make(map[string]int, GridSize)
	for _, w := range grid {
		if strings.TrimSpace(w) == "" {
			return nil, fmt.Errorf("grid contains an empty slot")
		}
		seen[strings.ToLower(w)]++
	}
	for _, w := range words {
		if seen[strings.ToLower(w)] != 1 {
			return nil, fmt.Errorf("target word %q appears %d times in grid", w, seen[strings.ToLower(w)])
		}
	}
	for w, n := range seen {
		if n > 1 {
			return nil, fmt.Errorf("grid word %q is duplicated", w)
		}
	}

	rs := make([]Riddle, len(riddles))
	copy(rs, riddles)

	return &PuzzleData{
		ID:          uuid.NewString(),
		TargetWords: words,
		Grid:        grid,
		Riddles:     rs,
		Background:  bg,
		CreatedAt:   time.Now(),
	}, nil
}

// HasBackground reports whether a background image is attached.
func (p *PuzzleData) HasBackground() bool {
	return p.Background != nil && len(p.Background.Data) > 0
}

// normalizeWords trims the three user inputs and rejects blanks.
func normalizeWords(in [3]string) ([3]string, error) {
	var out [3]string
	for i, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			return out, ErrMissingWords
		}
		out[i] = w
	}
	return out, nil
}

// checkDistinct rejects target words that repeat, ignoring case. The grid
// must show each target exactly once.
func checkDistinct(words [3]string) error {
	for i := range words {
		for j := i + 1; j < len(words); j++ {
			if strings.EqualFold(words[i], words[j]) {
				return fmt.Errorf("%w: %q", ErrDuplicateWords, words[j])
			}
		}
	}
	return nil
}
