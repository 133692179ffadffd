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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the duration of a segment unless configured otherwise.
const DefaultWindow = 10 * time.Second

// Micros converts t to microseconds since the Unix epoch.
func Micros(t time.Time) int64 {
	return t.UnixMicro()
}

// TimeOf converts microseconds since the Unix epoch to a UTC time.
func TimeOf(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// TimeInterval is a span of absolute time, [Start, End) in microseconds since the Unix epoch.
type TimeInterval struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Overlaps reports whether the open intersection of both intervals is non-empty.
// Intervals that only touch at a boundary do not overlap.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return max(iv.Start, other.Start) < min(iv.End, other.End)
}

// Duration returns the length of the interval.
func (iv TimeInterval) Duration() time.Duration {
	return time.Duration(iv.End-iv.Start) * time.Microsecond
}

func (iv TimeInterval) String() string {
	return fmt.Sprintf("%s -> %s", TimeOf(iv.Start).Format(time.RFC3339Nano), TimeOf(iv.End).Format(time.RFC3339Nano))
}

// AnnotatedInterval is an anomaly interval together with the annotator that reported it.
type AnnotatedInterval struct {
	TimeInterval
	Source string `json:"source" yaml:"source"`
}

// SignalDescriptor is the timing metadata of one signal in a store.
type SignalDescriptor struct {
	Name      string  // Signal name as stored (e.g., icp, abp)
	Frequency float64 // Sampling frequency in Hz
	Start     int64   // Timestamp of the first sample, microseconds
	End       int64   // End of the recording, microseconds
	Samples   int64   // Number of stored samples
	PatientID string  // Patient the recording belongs to
	Path      string  // Store the signal was read from
}

// Span returns the recorded time range of the signal.
func (d SignalDescriptor) Span() TimeInterval {
	return TimeInterval{Start: d.Start, End: d.End}
}

// DataRef locates the samples of a segment in its store.
type DataRef struct {
	Path   string `json:"source_path"`
	Signal string `json:"signal"`
	Offset int64  `json:"sample_offset"`
	Count  int64  `json:"sample_count"`
}

// Segment is one fixed-duration window of a signal and its consensus label.
// Data stays nil until the segment is loaded by the extractor that produced it.
type Segment struct {
	ID                string    `json:"id"`
	Signal            string    `json:"signal_name"`
	PatientID         string    `json:"patient_id"`
	Frequency         float64   `json:"frequency"`
	Start             int64     `json:"start_timestamp"`
	End               int64     `json:"end_timestamp"`
	Anomalous         bool      `json:"anomalous"`
	Weight            float64   `json:"weight"`
	AnnotatingSources []string  `json:"annotating_sources"`
	AnomalySources    []string  `json:"anomaly_sources"`
	Ref               DataRef   `json:"data_ref"`
	Data              []float64 `json:"data,omitempty"`

	loaded bool
}

// Loaded reports whether the samples of the segment have been read.
func (s *Segment) Loaded() bool {
	return s.loaded
}

// Interval returns the time range covered by the segment.
func (s *Segment) Interval() TimeInterval {
	return TimeInterval{Start: s.Start, End: s.End}
}

// Duration returns the segment length.
func (s *Segment) Duration() time.Duration {
	return s.Interval().Duration()
}

// FileName returns the export name <signal>_<weight>_<id>.
func (s *Segment) FileName() string {
	return fmt.Sprintf("%s_%s_%s", s.Signal, strconv.FormatFloat(s.Weight, 'f', 2, 64), s.ID)
}

// Columns are the headers matching Row.
var Columns = []string{
	"id", "signal_name", "patient_id", "frequency", "start_timestamp", "end_timestamp",
	"anomalous", "weight", "annotating_sources", "anomaly_sources",
	"source_path", "sample_offset", "sample_count", "data",
}

// Row renders the segment as a table row. The data column is empty until the segment is loaded.
func (s *Segment) Row() []string {
	var data string
	if s.loaded {
		values := make([]string, len(s.Data))
		for i, v := range s.Data {
			values[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		data = strings.Join(values, ";")
	}

	return []string{
		s.ID,
		s.Signal,
		s.PatientID,
		strconv.FormatFloat(s.Frequency, 'f', -1, 64),
		strconv.FormatInt(s.Start, 10),
		strconv.FormatInt(s.End, 10),
		strconv.FormatBool(s.Anomalous),
		strconv.FormatFloat(s.Weight, 'f', -1, 64),
		strings.Join(s.AnnotatingSources, ";"),
		strings.Join(s.AnomalySources, ";"),
		s.Ref.Path,
		strconv.FormatInt(s.Ref.Offset, 10),
		strconv.FormatInt(s.Ref.Count, 10),
		data,
	}
}

// Describe returns a short human readable description of the segment.
func (s *Segment) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Segment %s\n", s.ID)
	fmt.Fprintf(&b, "  Signal:     %s (%.2f Hz)\n", s.Signal, s.Frequency)
	fmt.Fprintf(&b, "  Patient:    %s\n", s.PatientID)
	fmt.Fprintf(&b, "  Time:       %s (%s)\n", s.Interval(), s.Duration())
	fmt.Fprintf(&b, "  Anomalous:  %t (weight %.2f)\n", s.Anomalous, s.Weight)
	if len(s.AnomalySources) > 0 {
		fmt.Fprintf(&b, "  Flagged by: %s\n", strings.Join(s.AnomalySources, ", "))
	}
	fmt.Fprintf(&b, "  Source:     %s [%d:%d]\n", s.Ref.Path, s.Ref.Offset, s.Ref.Offset+s.Ref.Count)
	if s.loaded {
		fmt.Fprintf(&b, "  Samples:    %d loaded\n", len(s.Data))
	} else {
		b.WriteString("  Samples:    not loaded\n")
	}
	return b.String()
}
