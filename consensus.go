// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package segments

// Consensus is the label derived for one window from all sources of a signal.
type Consensus struct {
	Anomalous         bool
	Weight            float64  // Fraction of known sources that flagged the window
	AnnotatingSources []string // Sources with an interval overlapping the window
	AnomalySources    []string // Sources voting the window anomalous
}

// Evaluator derives window consensus from the interval index of a signal.
type Evaluator struct {
	index *IntervalIndex
}

// NewEvaluator returns an evaluator over index.
func NewEvaluator(index *IntervalIndex) *Evaluator {
	return &Evaluator{index: index}
}

// Index returns the index the evaluator reads.
func (e *Evaluator) Index() *IntervalIndex {
	return e.index
}

// Evaluate labels window. A source votes once however many of its intervals overlap,
// and the weight is taken over every known source of the signal, not only those
// overlapping the window.
func (e *Evaluator) Evaluate(window TimeInterval) Consensus {
	if e.index == nil || len(e.index.sources) == 0 {
		return Consensus{}
	}

	voted := make(map[string]bool)
	for _, iv := range e.index.Overlapping(window) {
		voted[iv.Source] = true
	}
	if len(voted) == 0 {
		return Consensus{}
	}

	// Every interval reports an anomaly, so each overlapping source is also a voter.
	anomaly := make([]string, 0, len(voted))
	for _, source := range e.index.sources {
		if voted[source] {
			anomaly = append(anomaly, source)
		}
	}
	weight := float64(len(anomaly)) / float64(len(e.index.sources))

	return Consensus{
		Anomalous:         weight > 0,
		Weight:            weight,
		AnnotatingSources: append([]string(nil), anomaly...),
		AnomalySources:    anomaly,
	}
}
