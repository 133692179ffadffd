// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package segments

import (
	"slices"
	"sort"
)

// IntervalIndex holds the anomaly intervals that apply to one signal, from every source.
// Overlapping intervals are kept as reported so consensus can count sources.
type IntervalIndex struct {
	signal    string
	intervals []AnnotatedInterval // ordered by start, end, source
	sources   []string            // distinct, sorted
}

// BuildIndex merges the signal specific and global intervals of a signal.
// Known sources that reported nothing still count towards the consensus denominator.
func BuildIndex(signal string, specific, global []AnnotatedInterval, known ...string) *IntervalIndex {
	intervals := make([]AnnotatedInterval, 0, len(specific)+len(global))
	intervals = append(intervals, specific...)
	intervals = append(intervals, global...)
	sort.Slice(intervals, func(i, j int) bool {
		a, b := intervals[i], intervals[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Source < b.Source
	})

	seen := make(map[string]bool)
	var sources []string
	add := func(source string) {
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
	}
	for _, iv := range intervals {
		add(iv.Source)
	}
	for _, source := range known {
		add(source)
	}
	slices.Sort(sources)

	return &IntervalIndex{
		signal:    signal,
		intervals: intervals,
		sources:   sources,
	}
}

// Signal returns the name of the indexed signal.
func (ix *IntervalIndex) Signal() string {
	return ix.signal
}

// Len returns the number of indexed intervals.
func (ix *IntervalIndex) Len() int {
	return len(ix.intervals)
}

// Sources returns every source known for the signal, sorted.
func (ix *IntervalIndex) Sources() []string {
	return slices.Clone(ix.sources)
}

// Intervals returns a copy of the indexed intervals.
func (ix *IntervalIndex) Intervals() []AnnotatedInterval {
	return slices.Clone(ix.intervals)
}

// Overlapping returns the intervals whose open intersection with window is non-empty.
func (ix *IntervalIndex) Overlapping(window TimeInterval) []AnnotatedInterval {
	// Intervals starting at or after the window end cannot overlap it.
	n := sort.Search(len(ix.intervals), func(i int) bool {
		return ix.intervals[i].Start >= window.End
	})

	var out []AnnotatedInterval
	for _, iv := range ix.intervals[:n] {
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out
}

// CountBySource returns how many intervals each known source reported.
func (ix *IntervalIndex) CountBySource() map[string]int {
	counts := make(map[string]int, len(ix.sources))
	for _, source := range ix.sources {
		counts[source] = 0
	}
	for _, iv := range ix.intervals {
		counts[iv.Source]++
	}
	return counts
}
