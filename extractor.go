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

	"github.com/sirupsen/logrus"
)

// SingleSourceExtractor extracts labeled segments from the signals of one store.
// AutoAnnotate and Annotate must not run concurrently with the other methods.
type SingleSourceExtractor struct {
	store       Store
	opts        Options
	log         logrus.FieldLogger
	signals     map[string]SignalDescriptor
	annotations *AnnotationSet
}

// NewSingleSourceExtractor reads the signal table of store. Until annotations are
// attached every segment is labeled normal.
func NewSingleSourceExtractor(ctx context.Context, store Store, opts ...Option) (*SingleSourceExtractor, error) {
	o := newOptions(opts)

	signals, err := store.Signals(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing signals of %s: %w", store.Path(), err)
	}

	return &SingleSourceExtractor{
		store:   store,
		opts:    o,
		log:     o.Logger.WithField("path", store.Path()),
		signals: signals,
	}, nil
}

// OpenSingleSource opens the store at path with the configured opener.
func OpenSingleSource(ctx context.Context, path string, opts ...Option) (*SingleSourceExtractor, error) {
	o := newOptions(opts)
	if o.Opener == nil {
		return nil, fmt.Errorf("no store opener configured")
	}

	store, err := o.Opener(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}

	e, err := NewSingleSourceExtractor(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return e, nil
}

// Path returns the path of the underlying store.
func (e *SingleSourceExtractor) Path() string {
	return e.store.Path()
}

// Close closes the underlying store.
func (e *SingleSourceExtractor) Close() error {
	return e.store.Close()
}

// SignalNames returns the names of the signals in the store, sorted.
func (e *SingleSourceExtractor) SignalNames() []string {
	names := make([]string, 0, len(e.signals))
	for name := range e.signals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Descriptor returns the timing metadata of a signal.
func (e *SingleSourceExtractor) Descriptor(signal string) (SignalDescriptor, error) {
	desc, ok := e.signals[signal]
	if !ok {
		return SignalDescriptor{}, fmt.Errorf("%w: %q in %s", ErrUnknownSignal, signal, e.store.Path())
	}
	return desc, nil
}

// AutoAnnotate finds the annotation file of the store and attaches its intervals.
// ErrAnnotationNotFound leaves the extractor usable with every window labeled normal.
func (e *SingleSourceExtractor) AutoAnnotate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.opts.Parser == nil {
		return ErrNoAnnotationParser
	}

	var (
		path  string
		found bool
	)
	if e.opts.Resolver != nil {
		path, found = e.opts.Resolver.Resolve(e.store.Path())
	}
	if !found {
		return fmt.Errorf("%w for %s", ErrAnnotationNotFound, e.store.Path())
	}

	set, err := e.opts.Parser.Parse(path)
	if err != nil {
		return fmt.Errorf("error parsing annotations %s: %w", path, err)
	}
	if set.Path == "" {
		set.Path = path
	}
	e.Annotate(set)
	return nil
}

// Annotate attaches an already parsed annotation set, replacing any previous one.
func (e *SingleSourceExtractor) Annotate(set *AnnotationSet) {
	e.annotations = set
	if set == nil {
		return
	}

	var count int
	for _, intervals := range set.Signals {
		count += len(intervals)
	}
	e.log.WithFields(logrus.Fields{
		"annotations": set.Path,
		"global":      len(set.Global),
		"intervals":   count,
	}).Debug("attached annotations")
}

// Annotations returns the attached annotation set, or nil.
func (e *SingleSourceExtractor) Annotations() *AnnotationSet {
	return e.annotations
}

// Index builds the interval index of a signal from the attached annotations.
func (e *SingleSourceExtractor) Index(signal string) *IntervalIndex {
	return e.annotations.Index(signal)
}

// Extract plans and labels the segments of a signal and splits them into normal
// and anomalous ones. No samples are read.
func (e *SingleSourceExtractor) Extract(ctx context.Context, signal string) (normal, anomalous []*Segment, err error) {
	return e.ExtractWith(ctx, signal, e.Index(signal))
}

// ExtractWith is Extract with an explicitly supplied interval index.
func (e *SingleSourceExtractor) ExtractWith(ctx context.Context, signal string, index *IntervalIndex) (normal, anomalous []*Segment, err error) {
	segs, err := e.segments(ctx, signal, index)
	if err != nil {
		return nil, nil, err
	}
	normal, anomalous = Partition(segs)
	return normal, anomalous, nil
}

// Segments returns every segment of a signal in window order.
func (e *SingleSourceExtractor) Segments(ctx context.Context, signal string) ([]*Segment, error) {
	return e.segments(ctx, signal, e.Index(signal))
}

func (e *SingleSourceExtractor) segments(ctx context.Context, signal string, index *IntervalIndex) ([]*Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc, err := e.Descriptor(signal)
	if err != nil {
		return nil, err
	}
	if index == nil {
		index = BuildIndex(signal, nil, nil)
	}

	segs := BuildSegments(desc, NewPlan(desc, e.opts.Window), NewEvaluator(index))

	var anomalous int
	for _, s := range segs {
		if s.Anomalous {
			anomalous++
		}
	}
	e.log.WithFields(logrus.Fields{
		"signal":    signal,
		"segments":  len(segs),
		"anomalous": anomalous,
		"sources":   len(index.Sources()),
	}).Debug("planned segments")

	return segs, nil
}

// LoadData reads the samples of the given segments from the store. Segments that are
// already loaded are left as they are, so repeated calls read nothing new.
func (e *SingleSourceExtractor) LoadData(ctx context.Context, segs []*Segment) error {
	pending := slices.DeleteFunc(slices.Clone(segs), func(s *Segment) bool { return s.loaded })
	if len(pending) == 0 {
		return nil
	}

	// The store may have changed since planning, so check against its current extent.
	current, err := e.store.Signals(ctx)
	if err != nil {
		return fmt.Errorf("error listing signals of %s: %w", e.store.Path(), err)
	}

	for _, s := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Ref.Path != e.store.Path() {
			return fmt.Errorf("segment %s belongs to %s, not %s", s.ID, s.Ref.Path, e.store.Path())
		}

		desc, ok := current[s.Ref.Signal]
		if !ok {
			return fmt.Errorf("%w: %q in %s", ErrUnknownSignal, s.Ref.Signal, e.store.Path())
		}
		if s.Ref.Offset < 0 || s.Ref.Count < 0 || s.Ref.Offset+s.Ref.Count > desc.Samples {
			return fmt.Errorf("%w: segment %s needs samples [%d, %d) of %d in %s",
				ErrRangeOutOfBounds, s.ID, s.Ref.Offset, s.Ref.Offset+s.Ref.Count, desc.Samples, e.store.Path())
		}

		data, err := e.store.ReadSamples(ctx, s.Ref.Signal, s.Ref.Offset, s.Ref.Count)
		if err != nil {
			return fmt.Errorf("error reading samples of segment %s: %w", s.ID, err)
		}
		s.Data = data
		s.loaded = true
	}

	e.log.WithField("segments", len(pending)).Debug("loaded segment data")
	return nil
}

// RawData reads every sample of a signal.
func (e *SingleSourceExtractor) RawData(ctx context.Context, signal string) ([]float64, error) {
	desc, err := e.Descriptor(signal)
	if err != nil {
		return nil, err
	}
	data, err := e.store.ReadSamples(ctx, signal, 0, desc.Samples)
	if err != nil {
		return nil, fmt.Errorf("error reading %q from %s: %w", signal, e.store.Path(), err)
	}
	return data, nil
}

// AnnotatedAnomalies counts the anomaly intervals each annotator reported for a signal.
func (e *SingleSourceExtractor) AnnotatedAnomalies(signal string) map[string]int {
	return e.Index(signal).CountBySource()
}
