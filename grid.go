package main

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// fillerCount is the number of decoy words mixed with the three targets.
const fillerCount = GridSize - 3

// ErrFillerPoolTooSmall is returned when the pool cannot supply enough
// distinct fillers that differ from the target words.
var ErrFillerPoolTooSmall = errors.New("filler pool has fewer than 13 usable words")

// BuildGrid mixes the three target words with 13 random fillers and returns
// them in shuffled order.
func BuildGrid(targets [3]string, pool []string) ([GridSize]string, error) {
	var grid [GridSize]string

	taken := make(map[string]bool, len(pool)+len(targets))
	for _, t := range targets {
		taken[strings.ToLower(t)] = true
	}

	usable := make([]string, 0, len(pool))
	for _, w := range pool {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || taken[key] {
			continue
		}
		taken[key] = true
		usable = append(usable, w)
	}
	if len(usable) < fillerCount {
		return grid, ErrFillerPoolTooSmall
	}

	shuffle(usable)

	all := make([]string, 0, GridSize)
	all = append(all, targets[:]...)
	all = append(all, usable[:fillerCount]...)
	shuffle(all)

	copy(grid[:], all)
	return grid, nil
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
