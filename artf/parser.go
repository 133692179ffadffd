// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package artf reads ICM+ artefact annotation files (.artf).
package artf

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/OpenPSG/segments"
	"golang.org/x/text/encoding/charmap"
)

// Ext is the extension of artefact files.
const Ext = ".artf"

// TimeLayout is the layout of artefact timestamps. Fractional seconds are optional.
const TimeLayout = "02/01/2006 15:04:05"

// DefaultAnnotator is credited for artefacts that carry no author.
const DefaultAnnotator = "Administrator"

type document struct {
	XMLName xml.Name `xml:"ICMArtefacts"`
	Global  []group  `xml:"Global"`
	Groups  []group  `xml:"SignalGroup"`
	Info    *info    `xml:"Info"`
}

type group struct {
	Name      string     `xml:"Name,attr"`
	Artefacts []artefact `xml:"Artefact"`
}

type artefact struct {
	ModifiedBy   string `xml:"ModifiedBy,attr"`
	ModifiedDate string `xml:"ModifiedDate,attr"`
	StartTime    string `xml:"StartTime,attr"`
	EndTime      string `xml:"EndTime,attr"`
}

type info struct {
	HDF5Filename string `xml:"HDF5Filename,attr"`
	UserID       string `xml:"UserID,attr"`
}

// Parser implements segments.AnnotationParser.
type Parser struct{}

var _ segments.AnnotationParser = Parser{}

// Parse reads the artefact file at path.
func (p Parser) Parse(path string) (*segments.AnnotationSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	set.Path = path
	return set, nil
}

// Decode reads an artefact document. Artefacts with an empty or inverted time range are dropped.
func Decode(r io.Reader) (*segments.AnnotationSet, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var user string
	if doc.Info != nil {
		user = strings.TrimSpace(doc.Info.UserID)
	}

	set := &segments.AnnotationSet{
		Signals: make(map[string][]segments.AnnotatedInterval),
	}

	for _, g := range doc.Global {
		intervals, err := convert(g.Artefacts, user)
		if err != nil {
			return nil, fmt.Errorf("global: %w", err)
		}
		set.Global = append(set.Global, intervals...)
	}
	for _, g := range doc.Groups {
		intervals, err := convert(g.Artefacts, user)
		if err != nil {
			return nil, fmt.Errorf("signal group %q: %w", g.Name, err)
		}
		set.Signals[g.Name] = append(set.Signals[g.Name], intervals...)
	}

	// The reviewer counts as an annotator only when credited with an interval.
	if user != "" && reported(set, user) {
		set.Sources = []string{user}
	}

	return set, nil
}

func reported(set *segments.AnnotationSet, source string) bool {
	bySource := func(iv segments.AnnotatedInterval) bool { return iv.Source == source }
	if slices.ContainsFunc(set.Global, bySource) {
		return true
	}
	for _, intervals := range set.Signals {
		if slices.ContainsFunc(intervals, bySource) {
			return true
		}
	}
	return false
}

func convert(artefacts []artefact, user string) ([]segments.AnnotatedInterval, error) {
	out := make([]segments.AnnotatedInterval, 0, len(artefacts))
	for _, a := range artefacts {
		start, err := ParseTime(a.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := ParseTime(a.EndTime)
		if err != nil {
			return nil, err
		}
		if !start.Before(end) {
			continue
		}

		source := strings.TrimSpace(a.ModifiedBy)
		if source == "" {
			source = user
		}
		if source == "" {
			source = DefaultAnnotator
		}

		out = append(out, segments.AnnotatedInterval{
			TimeInterval: segments.TimeInterval{
				Start: segments.Micros(start),
				End:   segments.Micros(end),
			},
			Source: source,
		})
	}
	return out, nil
}

// ParseTime parses an artefact timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing time %q: %w", s, err)
	}
	return t, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
