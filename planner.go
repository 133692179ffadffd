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
	"iter"
	"math"
	"time"
)

// Window is one planned segment: its time range and the matching sample range.
type Window struct {
	TimeInterval
	Index  int   // Position in the plan
	Offset int64 // First sample of the window
	Count  int64 // Number of samples in the window
}

// Plan partitions the span of a signal into consecutive windows of equal duration.
// A trailing span shorter than the window is dropped so every window has the same shape,
// and every planned sample range lies within the stored samples.
type Plan struct {
	desc  SignalDescriptor
	width int64 // window duration in microseconds
}

// NewPlan plans windows of the given duration over the signal.
func NewPlan(desc SignalDescriptor, window time.Duration) Plan {
	return Plan{desc: desc, width: window.Microseconds()}
}

// Len returns the number of full windows that fit both the elapsed time of the signal and
// its stored samples. Rounding, or a store holding fewer samples than its span implies, can
// push the sample range of the last windows past the end; those windows are dropped.
func (p Plan) Len() int {
	span := p.desc.End - p.desc.Start
	if p.width <= 0 || span < p.width {
		return 0
	}
	n := int(span / p.width)
	for n > 0 {
		if w := p.Window(n - 1); w.Offset+w.Count <= p.desc.Samples {
			break
		}
		n--
	}
	return n
}

// Window returns the i-th window of the plan.
func (p Plan) Window(i int) Window {
	offset := int64(i) * p.width
	start := p.desc.Start + offset
	return Window{
		TimeInterval: TimeInterval{Start: start, End: start + p.width},
		Index:        i,
		Offset:       int64(math.Round(float64(offset) / 1e6 * p.desc.Frequency)),
		Count:        int64(math.Round(p.desc.Frequency * float64(p.width) / 1e6)),
	}
}

// All yields the windows in order. The sequence can be iterated any number of times.
func (p Plan) All() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for i := range p.Len() {
			if !yield(p.Window(i)) {
				return
			}
		}
	}
}

// Windows materializes the plan.
func (p Plan) Windows() []Window {
	out := make([]Window, 0, p.Len())
	for w := range p.All() {
		out = append(out, w)
	}
	return out
}
