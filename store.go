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
	"os"
	"path/filepath"
	"strings"
)

// Store gives access to the signals of one recording.
type Store interface {
	// Path identifies the store; it is part of every segment id.
	Path() string
	// Signals lists the descriptors of all sample-bearing signals, keyed by name.
	Signals(ctx context.Context) (map[string]SignalDescriptor, error)
	// ReadSamples reads count samples of a signal starting at sample start.
	ReadSamples(ctx context.Context, signal string, start, count int64) ([]float64, error)
	Close() error
}

// StoreOpener opens the store at path.
type StoreOpener func(path string) (Store, error)

// AnnotationParser reads an annotation file.
type AnnotationParser interface {
	Parse(path string) (*AnnotationSet, error)
}

// AnnotationResolver maps a store path to the path of its annotation file, if there is one.
type AnnotationResolver interface {
	Resolve(storePath string) (string, bool)
}

// SuffixResolver finds annotations that share the base name of the store and carry
// another extension, either next to the store or in Dir.
type SuffixResolver struct {
	Ext string // Annotation extension, including the dot
	Dir string // Directory holding annotations; empty means the store's directory
}

// Resolve implements AnnotationResolver.
func (r SuffixResolver) Resolve(storePath string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(storePath), filepath.Ext(storePath))
	dir := r.Dir
	if dir == "" {
		dir = filepath.Dir(storePath)
	}

	path := filepath.Join(dir, base+r.Ext)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// AnnotationSet is the parsed content of one annotation file.
type AnnotationSet struct {
	Path    string                         // File the set was read from
	Global  []AnnotatedInterval            // Intervals that apply to every signal
	Signals map[string][]AnnotatedInterval // Signal specific intervals
	Sources []string                       // Annotators known to have reviewed the recording
}

// Index builds the interval index of one signal. Signal names match case-insensitively.
func (a *AnnotationSet) Index(signal string) *IntervalIndex {
	if a == nil {
		return BuildIndex(signal, nil, nil)
	}

	var specific []AnnotatedInterval
	for name, intervals := range a.Signals {
		if strings.EqualFold(name, signal) {
			specific = append(specific, intervals...)
		}
	}
	return BuildIndex(signal, specific, a.Global, a.Sources...)
}
