// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"strings"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// AnnotationLabel is the label EDF+ reserves for time-stamped annotation lists.
const AnnotationLabel = "EDF Annotations"

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Duration returns the total recorded time covered by the data records.
func (h *Header) Duration() time.Duration {
	if h.DataRecords <= 0 {
		return 0
	}
	return time.Duration(h.DataRecords) * h.DataRecordDuration
}

// Frequency returns the sampling frequency of the signal at index i in Hz.
func (h *Header) Frequency(i int) float64 {
	if i < 0 || i >= len(h.Signals) || h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[i].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}

// Samples returns the number of samples stored for the signal at index i.
func (h *Header) Samples(i int) int64 {
	if i < 0 || i >= len(h.Signals) || h.DataRecords <= 0 {
		return 0
	}
	return int64(h.DataRecords) * int64(h.Signals[i].SamplesPerRecord)
}

// SignalIndex returns the index of the signal with the given label, or -1.
func (h *Header) SignalIndex(label string) int {
	for i, sig := range h.Signals {
		if sig.Label == label {
			return i
		}
	}
	return -1
}

// PatientCode returns the first subfield of the patient identification.
// EDF+ stores "code sex birthdate name" there, with "X" for unknown values.
func (h *Header) PatientCode() string {
	fields := strings.Fields(h.PatientID)
	if len(fields) == 0 || fields[0] == "X" {
		return ""
	}
	return fields[0]
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsAnnotation reports whether the signal carries EDF+ annotations instead of samples.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationLabel
}
