package main

import (
	"strings"
	"testing"
)

// charWidth pretends every rune is 10 units wide.
func charWidth(s string) int { return 10 * len([]rune(s)) }

func TestWrapLinesKeepsWordsInOrder(t *testing.T) {
	text := "1. I breathe fire and fly over the hills, I guard shiny treasure in my cave, what am I?"

	lines := wrapLines(text, 200, charWidth)
	if len(lines) < 3 {
		t.Fatalf("expected several lines, got %d: %q", len(lines), lines)
	}

	if got := strings.Join(lines, " "); got != text {
		t.Fatalf("words changed:\n got %q\nwant %q", got, text)
	}
	for _, l := range lines {
		if charWidth(l) > 200 {
			t.Fatalf("line %q is wider than 200", l)
		}
	}
}

func TestWrapLinesShortText(t *testing.T) {
	lines := wrapLines("1. What am I?", 900, charWidth)
	if len(lines) != 1 || lines[0] != "1. What am I?" {
		t.Fatalf("expected a single line, got %q", lines)
	}
}

func TestWrapLinesLongWordGetsOwnLine(t *testing.T) {
	lines := wrapLines("a supercalifragilistic b", 50, charWidth)
	want := []string{"a", "supercalifragilistic", "b"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", lines, want)
	}
}

func TestWrapLinesGreedy(t *testing.T) {
	// "aa bb" is exactly 50 wide and must stay on one line.
	lines := wrapLines("aa bb cc", 50, charWidth)
	if len(lines) != 2 || lines[0] != "aa bb" || lines[1] != "cc" {
		t.Fatalf("got %q", lines)
	}
}

func TestWrapLinesEmpty(t *testing.T) {
	if lines := wrapLines("   ", 100, charWidth); len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lines)
	}
}
