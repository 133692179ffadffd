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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MaxRecordBytes is the data record size the EDF standard recommends not to exceed.
const MaxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if hdr.SignalCount != len(hdr.Signals) {
		return nil, fmt.Errorf("signal count %d does not match %d signal definitions", hdr.SignalCount, len(hdr.Signals))
	}
	if hdr.DataRecordDuration <= 0 {
		return nil, fmt.Errorf("invalid data record duration: %s", hdr.DataRecordDuration)
	}
	hdr.DataRecords = -1 // Unknown number of data records (at this time).

	ew := &Writer{w: w, hdr: &hdr}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for i, signal := range signals {
		if want := ew.hdr.Signals[i].SamplesPerRecord; len(signal) != want {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, want, len(signal))
		}
		totalSamples += len(signal)
	}

	if totalSamples*2 > MaxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", totalSamples*2, MaxRecordBytes)
	}

	// Records always follow the last one written, even after the header was rewritten.
	offset := int64(ew.hdr.HeaderBytes) + int64(ew.dataRecords)*int64(totalSamples*2)
	if _, err := ew.w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to record: %w", err)
	}

	writer := bufio.NewWriter(ew.w)
	for i, samples := range signals {
		signal := ew.hdr.Signals[i]
		for _, sample := range samples {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := binary.Write(writer, binary.LittleEndian, digitalValue); err != nil {
				return err
			}
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader rewinds and writes the fixed and per-signal header fields.
func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	hdr := ew.hdr
	hdr.HeaderBytes = 256 + (hdr.SignalCount * 256)

	fields := []string{
		pad(string(hdr.Version), 8),
		pad(hdr.PatientID, 80),
		pad(hdr.RecordingID, 80),
		pad(hdr.StartTime.Format("02.01.06"), 8),
		pad(hdr.StartTime.Format("15.04.05"), 8),
		pad(strconv.Itoa(hdr.HeaderBytes), 8),
		pad("", 44),
		pad(strconv.Itoa(hdr.DataRecords), 8),
		pad(formatNumber(hdr.DataRecordDuration.Seconds()), 8),
		pad(strconv.Itoa(hdr.SignalCount), 4),
	}

	columns := []func(Signal) string{
		func(s Signal) string { return pad(s.Label, 16) },
		func(s Signal) string { return pad(s.TransducerType, 80) },
		func(s Signal) string { return pad(s.PhysicalDimension, 8) },
		func(s Signal) string { return pad(formatNumber(s.PhysicalMin), 8) },
		func(s Signal) string { return pad(formatNumber(s.PhysicalMax), 8) },
		func(s Signal) string { return pad(strconv.Itoa(s.DigitalMin), 8) },
		func(s Signal) string { return pad(strconv.Itoa(s.DigitalMax), 8) },
		func(s Signal) string { return pad(s.Prefiltering, 80) },
		func(s Signal) string { return pad(strconv.Itoa(s.SamplesPerRecord), 8) },
		func(s Signal) string { return pad("", 32) },
	}
	for _, column := range columns {
		for _, signal := range hdr.Signals {
			fields = append(fields, column(signal))
		}
	}

	writer := bufio.NewWriter(ew.w)
	for _, f := range fields {
		if _, err := writer.WriteString(f); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int16(digital)
}

// pad left-aligns s in an ASCII field of the given width, truncating overlong values.
func pad(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}

// formatNumber renders a value in at most 8 characters, dropping decimals when they do not fit.
func formatNumber(val float64) string {
	s := strconv.FormatFloat(val, 'f', -1, 64)
	if len(s) > 8 {
		s = fmt.Sprintf("%.2f", val)
	}
	if len(s) > 8 {
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}
