// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export_test

import (
	"context"
	"testing"
	"time"

	"github.com/OpenPSG/segments"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// sineStore holds one 40 second "icp" signal at 25 Hz whose sample i has value i/4.
type sineStore struct{}

func (sineStore) Path() string { return "TBI_001.edf" }

func (sineStore) Signals(context.Context) (map[string]segments.SignalDescriptor, error) {
	return map[string]segments.SignalDescriptor{
		"icp": {
			Name:      "icp",
			Frequency: 25,
			Start:     start.UnixMicro(),
			End:       start.Add(40 * time.Second).UnixMicro(),
			Samples:   1000,
			PatientID: "001",
			Path:      "TBI_001.edf",
		},
	}, nil
}

func (sineStore) ReadSamples(_ context.Context, _ string, start, count int64) ([]float64, error) {
	data := make([]float64, count)
	for i := range data {
		data[i] = float64(start+int64(i)) / 4
	}
	return data, nil
}

func (sineStore) Close() error { return nil }

// extract returns the four segments of the store, the second one anomalous, with the
// first loaded if load is set.
func extract(t *testing.T, load bool) []*segments.Segment {
	logger, _ := test.NewNullLogger()
	e, err := segments.NewSingleSourceExtractor(context.Background(), sineStore{}, segments.WithLogger(logger))
	require.NoError(t, err)

	index := segments.BuildIndex("icp", []segments.AnnotatedInterval{{
		TimeInterval: segments.TimeInterval{
			Start: start.Add(12 * time.Second).UnixMicro(),
			End:   start.Add(14 * time.Second).UnixMicro(),
		},
		Source: "A",
	}}, nil, "B")

	normal, anomalous, err := e.ExtractWith(context.Background(), "icp", index)
	require.NoError(t, err)
	segs := []*segments.Segment{normal[0], anomalous[0], normal[1], normal[2]}

	if load {
		require.NoError(t, e.LoadData(context.Background(), segs[:2]))
	}
	return segs
}
