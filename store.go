package main

import "sync"

// Store holds the single current puzzle and its rendered PNG in memory.
// Both are replaced together; nothing is kept from earlier generations.
type Store struct {
	mu     sync.RWMutex
	puzzle *PuzzleData
	png    []byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new puzzle and its image.
func (s *Store) Replace(p *PuzzleData, png []byte) {
	s.mu.Lock()
	s.puzzle = p
	s.png = png
	s.mu.Unlock()
}

// Current returns the current puzzle, or nil if none was generated yet.
func (s *Store) Current() *PuzzleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puzzle
}

// Image returns the current puzzle together with its PNG bytes.
func (s *Store) Image() (*PuzzleData, []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puzzle, s.png
}
