// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edfstore serves signals and sample ranges from EDF/EDF+ recordings.
package edfstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/edf"
)

// patientPattern matches recordings named TBI_<patient>[_...].ext.
var patientPattern = regexp.MustCompile(`TBI_([A-Za-z0-9]+)`)

// Store is a segments.Store over one EDF file.
type Store struct {
	path string
	mu   sync.Mutex // guards f and the reader position
	f    *os.File
	r    *edf.Reader
}

var _ segments.Store = (*Store)(nil)

// Open opens the EDF file at path.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := edf.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return &Store{
		path: filepath.Clean(path),
		f:    f,
		r:    r,
	}, nil
}

// Opener adapts Open to segments.StoreOpener.
func Opener(path string) (segments.Store, error) {
	return Open(path)
}

// Path implements segments.Store.
func (s *Store) Path() string {
	return s.path
}

// Close implements segments.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Signals implements segments.Store. EDF+ annotation channels are not listed.
// The extent reflects the records actually on disk, so a file cut short reports fewer samples
// than its header announces.
func (s *Store) Signals(ctx context.Context) (map[string]segments.SignalDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	records, err := s.records()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	hdr := s.r.Header()
	start := segments.Micros(hdr.StartTime)
	end := start + (time.Duration(records) * hdr.DataRecordDuration).Microseconds()
	patient := PatientID(hdr, s.path)

	out := make(map[string]segments.SignalDescriptor, len(hdr.Signals))
	for i, sig := range hdr.Signals {
		if sig.IsAnnotation() {
			continue
		}
		out[sig.Label] = segments.SignalDescriptor{
			Name:      sig.Label,
			Frequency: hdr.Frequency(i),
			Start:     start,
			End:       end,
			Samples:   int64(records) * int64(sig.SamplesPerRecord),
			PatientID: patient,
			Path:      s.path,
		}
	}
	return out, nil
}

// ReadSamples implements segments.Store.
func (s *Store) ReadSamples(ctx context.Context, signal string, start, count int64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hdr := s.r.Header()
	idx := hdr.SignalIndex(signal)
	if idx < 0 || hdr.Signals[idx].IsAnnotation() {
		return nil, fmt.Errorf("%w: %q in %s", segments.ErrUnknownSignal, signal, s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.records()
	if err != nil {
		return nil, err
	}
	if total := int64(records) * int64(hdr.Signals[idx].SamplesPerRecord); start < 0 || count < 0 || start+count > total {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", segments.ErrRangeOutOfBounds, start, start+count, total)
	}

	sr, err := s.r.Signal(idx)
	if err != nil {
		return nil, err
	}
	if err := sr.Seek(start); err != nil {
		return nil, err
	}

	data := make([]float64, count)
	if _, err := sr.Read(data); err != nil {
		// The file shrank between the size check and the read.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s ends before sample %d", segments.ErrRangeOutOfBounds, s.path, start+count)
		}
		return nil, fmt.Errorf("error reading samples: %w", err)
	}
	return data, nil
}

// records returns the number of complete data records on disk, never more than the header
// announces. The caller holds mu.
func (s *Store) records() (int, error) {
	hdr := s.r.Header()
	if hdr.DataRecords <= 0 {
		return 0, nil
	}

	var recordSize int64
	for _, sig := range hdr.Signals {
		recordSize += int64(sig.SamplesPerRecord) * 2
	}
	if recordSize == 0 {
		return 0, nil
	}

	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("error reading size of %s: %w", s.path, err)
	}
	onDisk := max((info.Size()-int64(hdr.HeaderBytes))/recordSize, 0)
	return int(min(onDisk, int64(hdr.DataRecords))), nil
}

// PatientID returns the patient code of the header, or failing that the id encoded in a
// TBI_<patient> file name.
func PatientID(hdr *edf.Header, path string) string {
	if code := hdr.PatientCode(); code != "" {
		return code
	}
	m := patientPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m[1]
}
