// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package segments_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/OpenPSG/segments"
	"github.com/sirupsen/logrus/hooks/test"
)

// t0 is an arbitrary recording start, in microseconds.
const t0 = int64(1_700_000_000_000_000)

func sec(s float64) int64 {
	return int64(math.Round(s * 1e6))
}

func at(s float64) int64 {
	return t0 + sec(s)
}

func interval(source string, from, to float64) segments.AnnotatedInterval {
	return segments.AnnotatedInterval{
		TimeInterval: segments.TimeInterval{Start: at(from), End: at(to)},
		Source:       source,
	}
}

// memStore is an in-memory segments.Store whose samples are a ramp: sample i has value i.
type memStore struct {
	path    string
	signals map[string]segments.SignalDescriptor

	mu    sync.Mutex
	reads int
}

func newMemStore(path string, span float64, freq float64, names ...string) *memStore {
	s := &memStore{path: path, signals: make(map[string]segments.SignalDescriptor)}
	for _, name := range names {
		s.signals[name] = segments.SignalDescriptor{
			Name:      name,
			Frequency: freq,
			Start:     t0,
			End:       at(span),
			Samples:   int64(math.Round(span * freq)),
			PatientID: "P" + path,
			Path:      path,
		}
	}
	return s
}

func (s *memStore) Path() string { return s.path }

func (s *memStore) Signals(ctx context.Context) (map[string]segments.SignalDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]segments.SignalDescriptor, len(s.signals))
	for k, v := range s.signals {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) ReadSamples(ctx context.Context, signal string, start, count int64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.signals[signal]
	if !ok {
		return nil, segments.ErrUnknownSignal
	}
	if start+count > desc.Samples {
		return nil, segments.ErrRangeOutOfBounds
	}
	s.reads++
	data := make([]float64, count)
	for i := range data {
		data[i] = float64(start + int64(i))
	}
	return data, nil
}

func (s *memStore) Close() error { return nil }

// setPatient assigns every signal of the store to one patient.
func (s *memStore) setPatient(id string) *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, desc := range s.signals {
		desc.PatientID = id
		s.signals[name] = desc
	}
	return s
}

// truncate shrinks a signal as if the file had been cut after planning.
func (s *memStore) truncate(signal string, samples int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.signals[signal]
	desc.Samples = samples
	s.signals[signal] = desc
}

func (s *memStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// brokenStore fails to list its signals.
type brokenStore struct{ path string }

func (s brokenStore) Path() string { return s.path }
func (s brokenStore) Signals(context.Context) (map[string]segments.SignalDescriptor, error) {
	return nil, errors.New("corrupt header")
}
func (s brokenStore) ReadSamples(context.Context, string, int64, int64) ([]float64, error) {
	return nil, errors.New("corrupt header")
}
func (s brokenStore) Close() error { return nil }

// mapResolver resolves store paths from a fixed table.
type mapResolver map[string]string

func (r mapResolver) Resolve(storePath string) (string, bool) {
	path, ok := r[storePath]
	return path, ok
}

// mapParser serves annotation sets from a fixed table.
type mapParser map[string]*segments.AnnotationSet

func (p mapParser) Parse(path string) (*segments.AnnotationSet, error) {
	set, ok := p[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return set, nil
}

// quiet discards extractor logs.
func quiet() segments.Option {
	logger, _ := test.NewNullLogger()
	return segments.WithLogger(logger)
}
