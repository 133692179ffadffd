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
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SignalSummary describes one signal and its annotation coverage.
type SignalSummary struct {
	Name       string         `yaml:"name"`
	PatientID  string         `yaml:"patient_id,omitempty"`
	Frequency  float64        `yaml:"frequency_hz"`
	Samples    int64          `yaml:"samples"`
	Start      time.Time      `yaml:"start"`
	End        time.Time      `yaml:"end"`
	Duration   time.Duration  `yaml:"duration"`
	Segments   int            `yaml:"segments"`
	Anomalous  int            `yaml:"anomalous"`
	Annotators map[string]int `yaml:"annotators,omitempty"` // intervals per annotator
}

// Summary describes a store.
type Summary struct {
	Path        string          `yaml:"path"`
	Annotations string          `yaml:"annotations,omitempty"`
	Window      time.Duration   `yaml:"window"`
	Signals     []SignalSummary `yaml:"signals"`
}

// Summary collects the signals of the store and how the attached annotations label them.
// No samples are read.
func (e *SingleSourceExtractor) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{
		Path:   e.store.Path(),
		Window: e.opts.Window,
	}
	if e.annotations != nil {
		sum.Annotations = e.annotations.Path
	}

	for _, name := range e.SignalNames() {
		desc := e.signals[name]
		segs, err := e.Segments(ctx, name)
		if err != nil {
			return Summary{}, err
		}

		sig := SignalSummary{
			Name:      name,
			PatientID: desc.PatientID,
			Frequency: desc.Frequency,
			Samples:   desc.Samples,
			Start:     TimeOf(desc.Start),
			End:       TimeOf(desc.End),
			Duration:  desc.Span().Duration(),
			Segments:  len(segs),
		}
		for _, s := range segs {
			if s.Anomalous {
				sig.Anomalous++
			}
		}
		if e.annotations != nil {
			sig.Annotators = e.AnnotatedAnomalies(name)
		}
		sum.Signals = append(sum.Signals, sig)
	}

	return sum, nil
}

// Describe returns a human readable summary of the store.
func (e *SingleSourceExtractor) Describe(ctx context.Context) (string, error) {
	sum, err := e.Summary(ctx)
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", s.Path)
	if s.Annotations != "" {
		fmt.Fprintf(&b, "Annotations: %s\n", s.Annotations)
	} else {
		b.WriteString("Annotations: none\n")
	}
	fmt.Fprintf(&b, "Window: %s\n", s.Window)

	for _, sig := range s.Signals {
		fmt.Fprintf(&b, "\n%s\n", strings.ToUpper(sig.Name))
		fmt.Fprintf(&b, "  Sampling rate: %.2f Hz\n", sig.Frequency)
		fmt.Fprintf(&b, "  Samples:       %d\n", sig.Samples)
		fmt.Fprintf(&b, "  Duration:      %s\n", sig.Duration)
		fmt.Fprintf(&b, "  Start:         %s\n", sig.Start.Format(time.RFC3339Nano))
		fmt.Fprintf(&b, "  End:           %s\n", sig.End.Format(time.RFC3339Nano))
		if sig.PatientID != "" {
			fmt.Fprintf(&b, "  Patient:       %s\n", sig.PatientID)
		}

		var pct float64
		if sig.Segments > 0 {
			pct = float64(sig.Anomalous) / float64(sig.Segments) * 100
		}
		fmt.Fprintf(&b, "  Segments:      %d (%d normal, %d anomalous, %.2f%%)\n",
			sig.Segments, sig.Segments-sig.Anomalous, sig.Anomalous, pct)

		if len(sig.Annotators) > 0 {
			names := make([]string, 0, len(sig.Annotators))
			for name := range sig.Annotators {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(&b, "  Annotator %s: %d intervals\n", name, sig.Annotators[name])
			}
		}
	}
	return b.String()
}
