// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/segments/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, name string) *os.File {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), name), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})
	return f
}

func TestWriter(t *testing.T) {
	f := create(t, "icp.edf")

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "TBI042 F 02-MAR-1961 X",
		RecordingID:        "Startdate 01-MAR-2024 ICU",
		StartTime:          time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC),
		DataRecordDuration: 500 * time.Millisecond,
		SignalCount:        1,
		Signals: []edf.Signal{
			{
				Label:             "icp",
				TransducerType:    "Parenchymal sensor",
				PhysicalDimension: "mmHg",
				PhysicalMin:       -50,
				PhysicalMax:       150,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  125,
			},
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	// Four half-second records of a slow ramp.
	record := make([]float64, 125)
	for rec := 0; rec < 4; rec++ {
		for i := range record {
			record[i] = float64(rec*125+i) / 10
		}
		require.NoError(t, ew.WriteRecord([][]float64{record}))
	}
	require.NoError(t, ew.Close())

	er, err := edf.Open(f)
	require.NoError(t, err)

	got := er.Header()
	assert.Equal(t, 4, got.DataRecords)
	assert.Equal(t, 500*time.Millisecond, got.DataRecordDuration)
	assert.Equal(t, hdr.StartTime, got.StartTime)
	assert.Equal(t, hdr.RecordingID, got.RecordingID)
	assert.Equal(t, "TBI042", got.PatientCode())
	assert.Equal(t, 2*time.Second, got.Duration())
	assert.Equal(t, 250.0, got.Frequency(0))
	assert.Equal(t, int64(500), got.Samples(0))
	assert.Equal(t, "mmHg", got.Signals[0].PhysicalDimension)

	sr, err := er.Signal(0)
	require.NoError(t, err)

	samples := make([]float64, 500)
	n, err := sr.Read(samples)
	require.NoError(t, err)
	require.Equal(t, 500, n)

	// One digital step is 200/65535 mmHg.
	for i := range samples {
		require.InDelta(t, float64(i)/10, samples[i], 0.01)
	}

	_, err = sr.Read(samples)
	require.Equal(t, io.EOF, err)
}

func TestWriterClampsOutOfRangeValues(t *testing.T) {
	f := create(t, "clamp.edf")

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals:            []edf.Signal{{Label: "abp", PhysicalMin: 0, PhysicalMax: 200, DigitalMin: 0, DigitalMax: 2000, SamplesPerRecord: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, ew.WriteRecord([][]float64{{-20, 250}}))
	require.NoError(t, ew.Close())

	er, err := edf.Open(f)
	require.NoError(t, err)
	sr, err := er.Signal(0)
	require.NoError(t, err)

	samples := make([]float64, 2)
	_, err = sr.Read(samples)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 200}, samples)
}

func TestWriterRejectsInvalidInput(t *testing.T) {
	f := create(t, "short.edf")

	_, err := edf.Create(f, edf.Header{SignalCount: 2, DataRecordDuration: time.Second})
	assert.Error(t, err)

	_, err = edf.Create(f, edf.Header{SignalCount: 1, Signals: []edf.Signal{{Label: "icp"}}})
	assert.Error(t, err)

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals:            []edf.Signal{{Label: "icp", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -100, DigitalMax: 100, SamplesPerRecord: 4}},
	})
	require.NoError(t, err)

	assert.Error(t, ew.WriteRecord([][]float64{{1, 2}}))
	assert.Error(t, ew.WriteRecord(nil))
}

func TestWriterRejectsOversizedRecords(t *testing.T) {
	f := create(t, "large.edf")

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Minute,
		SignalCount:        1,
		Signals:            []edf.Signal{{Label: "ecg", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -100, DigitalMax: 100, SamplesPerRecord: edf.MaxRecordBytes}},
	})
	require.NoError(t, err)

	assert.Error(t, ew.WriteRecord([][]float64{make([]float64, edf.MaxRecordBytes)}))
}
