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
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/segments/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTwoSignals writes 3 one-second records holding an "abp" ramp at 4 Hz
// and an "icp" ramp at 2 Hz, with integer physical values.
func writeTwoSignals(t *testing.T) *os.File {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "two.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	signal := func(label string, spr int) edf.Signal {
		return edf.Signal{
			Label:             label,
			PhysicalDimension: "mmHg",
			PhysicalMin:       -32768,
			PhysicalMax:       32767,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  spr,
		}
	}

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "TBI001 M 01-JAN-1970 X",
		StartTime:          time.Date(2023, 5, 4, 8, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        2,
		Signals:            []edf.Signal{signal("abp", 4), signal("icp", 2)},
	})
	require.NoError(t, err)

	for rec := 0; rec < 3; rec++ {
		abp := make([]float64, 4)
		for i := range abp {
			abp[i] = float64(rec*4 + i)
		}
		icp := []float64{float64(100 + rec*2), float64(101 + rec*2)}
		require.NoError(t, ew.WriteRecord([][]float64{abp, icp}))
	}
	require.NoError(t, ew.Close())

	return f
}

func TestReader(t *testing.T) {
	f := writeTwoSignals(t)

	er, err := edf.Open(f)
	require.NoError(t, err)

	hdr := er.Header()
	require.Equal(t, 2, hdr.SignalCount)
	assert.Equal(t, "TBI001", hdr.PatientCode())
	assert.Equal(t, 1, hdr.SignalIndex("icp"))
	assert.Equal(t, -1, hdr.SignalIndex("ecg"))
	assert.Equal(t, int64(12), hdr.Samples(0))
	assert.InDelta(t, 2.0, hdr.Frequency(1), 1e-9)

	sr, err := er.Signal(1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sr.Samples())

	samples := make([]float64, 6)
	n, err := sr.Read(samples)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	assert.Equal(t, []float64{100, 101, 102, 103, 104, 105}, samples)
}

func TestSignalReaderSeek(t *testing.T) {
	f := writeTwoSignals(t)

	er, err := edf.Open(f)
	require.NoError(t, err)

	sr, err := er.Signal(0)
	require.NoError(t, err)

	// Start mid-record and cross a record boundary.
	require.NoError(t, sr.Seek(3))
	samples := make([]float64, 6)
	n, err := sr.Read(samples)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8}, samples)

	// A read running past the last record is short.
	require.NoError(t, sr.Seek(10))
	n, err = sr.Read(samples)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)

	err = sr.Seek(13)
	assert.True(t, errors.Is(err, edf.ErrSampleOutOfRange))

	_, err = er.Signal(2)
	assert.Error(t, err)
}
