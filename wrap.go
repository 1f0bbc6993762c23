package main

import "strings"

// wrapLines greedily breaks text into lines no wider than maxWidth as reported
// by measure. A single word wider than maxWidth gets a line of its own.
func wrapLines(text string, maxWidth int, measure func(string) int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
