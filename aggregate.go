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
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// AggregateExtractor runs a SingleSourceExtractor for every store found under a directory.
// Results keep store order, then window order, regardless of how many workers ran.
type AggregateExtractor struct {
	dir        string
	opts       Options
	log        logrus.FieldLogger
	extractors []*SingleSourceExtractor
}

// SignalCoverage tells which signals every store has and which only some stores have.
type SignalCoverage struct {
	Consistent []string            // Signals present in every store
	Outliers   map[string][]string // Store path -> signals missing from at least one other store
}

// NewAggregateExtractor opens every store under dir whose name ends in the store extension.
// Stores that fail to open are skipped unless fail-fast is set.
func NewAggregateExtractor(ctx context.Context, dir string, opts ...Option) (*AggregateExtractor, error) {
	o := newOptions(opts)
	if o.Opener == nil {
		return nil, fmt.Errorf("no store opener configured")
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), o.StoreExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning %s: %w", dir, err)
	}
	slices.Sort(paths)

	a := &AggregateExtractor{
		dir:  dir,
		opts: o,
		log:  o.Logger.WithField("dir", dir),
	}
	for _, path := range paths {
		e, err := OpenSingleSource(ctx, path, opts...)
		if err != nil {
			if o.FailFast {
				_ = a.Close()
				return nil, err
			}
			a.log.WithError(err).WithField("path", path).Warn("skipping store")
			continue
		}
		a.extractors = append(a.extractors, e)
	}

	a.log.WithField("stores", len(a.extractors)).Info("opened stores")
	return a, nil
}

// Files returns the paths of the opened stores, in processing order.
func (a *AggregateExtractor) Files() []string {
	paths := make([]string, len(a.extractors))
	for i, e := range a.extractors {
		paths[i] = e.Path()
	}
	return paths
}

// Extractors returns the per-store extractors.
func (a *AggregateExtractor) Extractors() []*SingleSourceExtractor {
	return slices.Clone(a.extractors)
}

// Close closes every store.
func (a *AggregateExtractor) Close() error {
	var errs []error
	for _, e := range a.extractors {
		errs = append(errs, e.Close())
	}
	return errors.Join(errs...)
}

// AutoAnnotate annotates every store that has an annotation file and returns how many did.
// Stores without one keep labeling every window normal.
func (a *AggregateExtractor) AutoAnnotate(ctx context.Context) (int, error) {
	var annotated int
	for _, e := range a.extractors {
		err := e.AutoAnnotate(ctx)
		switch {
		case err == nil:
			annotated++
		case errors.Is(err, ErrAnnotationNotFound):
			a.log.WithField("path", e.Path()).Warn("no annotations found")
		case a.opts.FailFast || errors.Is(err, ErrNoAnnotationParser) || ctx.Err() != nil:
			return annotated, err
		default:
			a.log.WithError(err).WithField("path", e.Path()).Warn("skipping annotations")
		}
	}
	return annotated, nil
}

// SignalNames reports which signals are shared by all stores.
func (a *AggregateExtractor) SignalNames() SignalCoverage {
	counts := make(map[string]int)
	for _, e := range a.extractors {
		for _, name := range e.SignalNames() {
			counts[name]++
		}
	}

	cov := SignalCoverage{Outliers: make(map[string][]string)}
	for name, n := range counts {
		if n == len(a.extractors) {
			cov.Consistent = append(cov.Consistent, name)
		}
	}
	slices.Sort(cov.Consistent)

	for _, e := range a.extractors {
		for _, name := range e.SignalNames() {
			if counts[name] != len(a.extractors) {
				cov.Outliers[e.Path()] = append(cov.Outliers[e.Path()], name)
			}
		}
	}
	return cov
}

// Extract extracts a signal from every store and concatenates the results. Stores without
// the signal are skipped, and so are stores without annotations unless WithUnannotated is set.
// Other failures are skipped too unless fail-fast is set.
// ErrSignalNeverFound is returned when no store has the signal, and ErrAnnotationNotFound
// when stores have it but none of them is annotated.
func (a *AggregateExtractor) Extract(ctx context.Context, signal string) (normal, anomalous []*Segment, err error) {
	type result struct {
		found       bool
		unannotated bool
		normal      []*Segment
		anomalous   []*Segment
	}
	results := make([]result, len(a.extractors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, e := range a.extractors {
		g.Go(func() error {
			if _, err := e.Descriptor(signal); err == nil && e.Annotations() == nil && !a.opts.Unannotated {
				results[i].unannotated = true
				a.log.WithFields(logrus.Fields{"path": e.Path(), "signal": signal}).Info("skipping unannotated store")
				return nil
			}

			n, an, err := e.Extract(gctx, signal)
			switch {
			case err == nil:
				results[i] = result{found: true, normal: n, anomalous: an}
				return nil
			case errors.Is(err, ErrUnknownSignal):
				a.log.WithFields(logrus.Fields{"path": e.Path(), "signal": signal}).Debug("store lacks signal")
				return nil
			case a.opts.FailFast:
				return err
			default:
				a.log.WithError(err).WithField("path", e.Path()).Warn("skipping store")
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var found, unannotated int
	frequencies := make(map[float64]bool)
	for i, r := range results {
		if r.unannotated {
			unannotated++
		}
		if !r.found {
			continue
		}
		found++
		normal = append(normal, r.normal...)
		anomalous = append(anomalous, r.anomalous...)
		if desc, err := a.extractors[i].Descriptor(signal); err == nil {
			frequencies[desc.Frequency] = true
		}
	}
	if found == 0 && unannotated > 0 {
		return nil, nil, fmt.Errorf("%w: %d stores under %s have %q, none of them annotated",
			ErrAnnotationNotFound, unannotated, a.dir, signal)
	}
	if found == 0 {
		return nil, nil, fmt.Errorf("%w: %q under %s", ErrSignalNeverFound, signal, a.dir)
	}
	if len(frequencies) > 1 {
		a.log.WithField("signal", signal).Warnf("stores disagree on frequency: %v", sortedKeys(frequencies))
	}

	a.log.WithFields(logrus.Fields{
		"signal":    signal,
		"stores":    found,
		"normal":    len(normal),
		"anomalous": len(anomalous),
	}).Info("extracted segments")
	return normal, anomalous, nil
}

// ExtractByPatient is Extract with the segments grouped by patient id. Stores of the same
// patient are merged; within a patient, segments keep store order, then window order.
func (a *AggregateExtractor) ExtractByPatient(ctx context.Context, signal string) (normal, anomalous map[string][]*Segment, err error) {
	n, an, err := a.Extract(ctx, signal)
	if err != nil {
		return nil, nil, err
	}
	return groupByPatient(n), groupByPatient(an), nil
}

func groupByPatient(segs []*Segment) map[string][]*Segment {
	out := make(map[string][]*Segment)
	for _, s := range segs {
		out[s.PatientID] = append(out[s.PatientID], s)
	}
	return out
}

// LoadData loads segments through the extractor of the store each one came from.
func (a *AggregateExtractor) LoadData(ctx context.Context, segs []*Segment) error {
	byPath := make(map[string][]*Segment)
	for _, s := range segs {
		byPath[s.Ref.Path] = append(byPath[s.Ref.Path], s)
	}

	for _, e := range a.extractors {
		if err := e.LoadData(ctx, byPath[e.Path()]); err != nil {
			return err
		}
		delete(byPath, e.Path())
	}
	for _, s := range segs {
		if _, ok := byPath[s.Ref.Path]; ok {
			return fmt.Errorf("segment %s from %s does not belong to any store under %s", s.ID, s.Ref.Path, a.dir)
		}
	}
	return nil
}

// AnnotatedAnomalies sums the anomaly intervals per annotator for a signal over all stores.
func (a *AggregateExtractor) AnnotatedAnomalies(signal string) map[string]int {
	total := make(map[string]int)
	for _, e := range a.extractors {
		if _, err := e.Descriptor(signal); err != nil {
			continue
		}
		for source, n := range e.AnnotatedAnomalies(signal) {
			total[source] += n
		}
	}
	return total
}

func sortedKeys(m map[float64]bool) []float64 {
	keys := make([]float64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
