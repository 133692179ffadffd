// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/edf"
)

// ErrNotLoaded is returned when exporting samples of a segment that was never loaded.
var ErrNotLoaded = errors.New("segment data not loaded")

// EDFDir writes every loaded segment to its own <signal>_<weight>_<id>.edf file in dir.
func EDFDir(dir string, segs []*segments.Segment) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(segs))
	for _, s := range segs {
		path := filepath.Join(dir, s.FileName()+".edf")
		if err := WriteEDF(path, s); err != nil {
			return paths, fmt.Errorf("error writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteEDF writes the samples of one segment as a single-signal EDF file.
func WriteEDF(path string, s *segments.Segment) error {
	if !s.Loaded() {
		return fmt.Errorf("%w: %s", ErrNotLoaded, s.ID)
	}
	if len(s.Data) == 0 {
		return fmt.Errorf("segment %s has no samples", s.ID)
	}

	records := recordCount(len(s.Data))
	perRecord := len(s.Data) / records

	pmin, pmax := slices.Min(s.Data), slices.Max(s.Data)
	if pmin == pmax {
		pmin, pmax = pmin-1, pmax+1
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          s.PatientID,
		RecordingID:        s.ID,
		StartTime:          segments.TimeOf(s.Start),
		DataRecordDuration: s.Duration() / time.Duration(records),
		SignalCount:        1,
		Signals: []edf.Signal{{
			Label:            s.Signal,
			PhysicalMin:      pmin,
			PhysicalMax:      pmax,
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: perRecord,
		}},
	})
	if err != nil {
		return err
	}

	for i := 0; i < records; i++ {
		if err := ew.WriteRecord([][]float64{s.Data[i*perRecord : (i+1)*perRecord]}); err != nil {
			return err
		}
	}
	if err := ew.Close(); err != nil {
		return err
	}
	return f.Close()
}

// recordCount splits n samples into the fewest equal records that fit the EDF record limit.
func recordCount(n int) int {
	for records := 1; records <= n; records++ {
		if n%records == 0 && (n/records)*2 <= edf.MaxRecordBytes {
			return records
		}
	}
	return n
}
