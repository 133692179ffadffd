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
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures the extractors.
type Options struct {
	Window   time.Duration      // Segment duration
	Logger   logrus.FieldLogger // Destination of progress and skip reports
	Resolver AnnotationResolver // Finds the annotation file of a store
	Parser   AnnotationParser   // Reads annotation files
	Opener   StoreOpener        // Opens stores found by the aggregate extractor
	StoreExt string             // Extension of store files, including the dot
	Workers  int                // Stores processed concurrently by the aggregate extractor
	FailFast bool               // Abort a batch on the first store failure

	// Unannotated lets stores without annotations contribute all-normal segments to batch
	// extraction. Off by default, so they are skipped.
	Unannotated bool
}

// Option modifies Options.
type Option func(*Options)

func newOptions(opts []Option) Options {
	o := Options{
		Window:   DefaultWindow,
		Logger:   logrus.StandardLogger(),
		Resolver: SuffixResolver{Ext: ".artf"},
		StoreExt: ".edf",
		Workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// WithWindow sets the segment duration.
func WithWindow(d time.Duration) Option {
	return func(o *Options) { o.Window = d }
}

// WithLogger sets the logger progress and skipped stores are reported to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithResolver sets how the annotation file of a store is found.
func WithResolver(r AnnotationResolver) Option {
	return func(o *Options) { o.Resolver = r }
}

// WithParser sets the parser of annotation files.
func WithParser(p AnnotationParser) Option {
	return func(o *Options) { o.Parser = p }
}

// WithOpener sets how store files are opened.
func WithOpener(open StoreOpener) Option {
	return func(o *Options) { o.Opener = open }
}

// WithStoreExt sets the extension of the store files an aggregate extractor picks up.
func WithStoreExt(ext string) Option {
	return func(o *Options) { o.StoreExt = ext }
}

// WithWorkers bounds the number of stores extracted concurrently.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithFailFast makes batch operations stop at the first failing store instead of skipping it.
func WithFailFast(failFast bool) Option {
	return func(o *Options) { o.FailFast = failFast }
}

// WithUnannotated makes batch extraction include stores that have no annotations, labeling
// all of their segments normal.
func WithUnannotated(include bool) Option {
	return func(o *Options) { o.Unannotated = include }
}
