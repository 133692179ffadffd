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
	"strconv"

	"github.com/google/uuid"
)

// segmentNamespace scopes segment ids so they never collide with other name-based UUIDs.
var segmentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/OpenPSG/segments"))

// SegmentID derives the identifier of a segment from its store, signal and start time.
// The same inputs yield the same id in every run and process.
func SegmentID(sourcePath, signal string, start int64) string {
	name := sourcePath + "\x00" + signal + "\x00" + strconv.FormatInt(start, 10)
	return uuid.NewSHA1(segmentNamespace, []byte(name)).String()
}

// BuildSegments labels every planned window of a signal. No samples are read.
func BuildSegments(desc SignalDescriptor, plan Plan, evaluator *Evaluator) []*Segment {
	out := make([]*Segment, 0, plan.Len())
	for w := range plan.All() {
		c := evaluator.Evaluate(w.TimeInterval)
		out = append(out, &Segment{
			ID:                SegmentID(desc.Path, desc.Name, w.Start),
			Signal:            desc.Name,
			PatientID:         desc.PatientID,
			Frequency:         desc.Frequency,
			Start:             w.Start,
			End:               w.End,
			Anomalous:         c.Anomalous,
			Weight:            c.Weight,
			AnnotatingSources: c.AnnotatingSources,
			AnomalySources:    c.AnomalySources,
			Ref: DataRef{
				Path:   desc.Path,
				Signal: desc.Name,
				Offset: w.Offset,
				Count:  w.Count,
			},
		})
	}
	return out
}

// Partition splits segments into normal and anomalous ones, keeping their order.
func Partition(segs []*Segment) (normal, anomalous []*Segment) {
	for _, s := range segs {
		if s.Anomalous {
			anomalous = append(anomalous, s)
		} else {
			normal = append(normal, s)
		}
	}
	return normal, anomalous
}

// Balance keeps at most len(anomalous)*multiplier normal segments, in order.
// A multiplier below one leaves normal untouched.
func Balance(normal, anomalous []*Segment, multiplier int) []*Segment {
	if multiplier < 1 {
		return normal
	}
	if limit := len(anomalous) * multiplier; len(normal) > limit {
		return normal[:limit]
	}
	return normal
}
