package main

import (
	"sync"
	"testing"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	if s.Current() != nil {
		t.Fatal("expected no puzzle in a new store")
	}
	if p, data := s.Image(); p != nil || data != nil {
		t.Fatal("expected no image in a new store")
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()
	first := newTestPuzzle(t, nil)
	second := newTestPuzzle(t, nil)

	s.Replace(first, []byte("one"))
	if s.Current() != first {
		t.Fatal("expected first puzzle")
	}

	s.Replace(second, []byte("two"))
	p, data := s.Image()
	if p != second || string(data) != "two" {
		t.Fatal("expected puzzle and image to be replaced together")
	}
	if first.ID == second.ID {
		t.Fatal("puzzles should have distinct IDs")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	puzzles := []*PuzzleData{newTestPuzzle(t, nil), newTestPuzzle(t, nil)}
	images := [][]byte{[]byte("zero"), []byte("one")}
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Replace(puzzles[i%2], images[i%2])
		}()
		go func() {
			defer wg.Done()
			p, data := s.Image()
			if p == nil {
				return
			}
			if (p == puzzles[0]) != (string(data) == "zero") {
				t.Error("puzzle and image out of sync")
			}
		}()
	}
	wg.Wait()
}
