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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrSampleOutOfRange is returned when seeking past the recorded samples of a signal.
var ErrSampleOutOfRange = errors.New("sample out of range")

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// signalField describes one per-signal column of the header, in file order.
type signalField struct {
	width int
	set   func(sig *Signal, v string)
}

var signalFields = []signalField{
	{16, func(sig *Signal, v string) { sig.Label = v }},
	{80, func(sig *Signal, v string) { sig.TransducerType = v }},
	{8, func(sig *Signal, v string) { sig.PhysicalDimension = v }},
	{8, func(sig *Signal, v string) { sig.PhysicalMin = parseFloat(v) }},
	{8, func(sig *Signal, v string) { sig.PhysicalMax = parseFloat(v) }},
	{8, func(sig *Signal, v string) { sig.DigitalMin = parseInt(v) }},
	{8, func(sig *Signal, v string) { sig.DigitalMax = parseInt(v) }},
	{80, func(sig *Signal, v string) { sig.Prefiltering = v }},
	{8, func(sig *Signal, v string) { sig.SamplesPerRecord = parseInt(v) }},
	{32, func(sig *Signal, v string) { sig.Reserved = v }},
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to header: %w", err)
	}
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	field := func(from, to int) string {
		return strings.TrimSpace(string(b[from:to]))
	}

	hdr := &Header{
		Version:     Version(field(0, 8)),
		PatientID:   field(8, 88),
		RecordingID: field(88, 168),
	}

	startDate, err := time.Parse("02.01.06", field(168, 176))
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", field(176, 184))
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(field(184, 192)); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	if hdr.DataRecords, err = strconv.Atoi(field(236, 244)); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	if hdr.DataRecordDuration, err = time.ParseDuration(field(244, 252) + "s"); err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}
	if hdr.SignalCount, err = strconv.Atoi(field(252, 256)); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("invalid signal count: %d", hdr.SignalCount)
	}

	// Per-signal fields are stored column-wise: every label, then every transducer, etc.
	hdr.Signals = make([]Signal, hdr.SignalCount)
	for _, f := range signalFields {
		col := make([]byte, f.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, col); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			f.set(&hdr.Signals[i], strings.TrimSpace(string(col)))
		}
	}

	return &Reader{
		r:   r,
		hdr: hdr,
	}, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() *Header {
	return er.hdr
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r                io.ReadSeeker
	hdr              *Header
	signal           Signal
	currentRecord    int   // Current record being processed
	currentSample    int   // Current sample in the record
	recordSize       int64 // Total size of one data record in bytes
	signalOffset     int64 // Byte offset of the signal in a record
	samplesPerRecord int   // Number of samples per record for the signal
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	var recordSize, signalOffset int64
	for i, sig := range er.hdr.Signals {
		if i < signalIndex {
			signalOffset += int64(sig.SamplesPerRecord) * 2
		}
		recordSize += int64(sig.SamplesPerRecord) * 2
	}

	signal := er.hdr.Signals[signalIndex]
	return &SignalReader{
		r:                er.r,
		hdr:              er.hdr,
		signal:           signal,
		recordSize:       recordSize,
		signalOffset:     signalOffset,
		samplesPerRecord: signal.SamplesPerRecord,
	}, nil
}

// Samples returns the total number of samples recorded for the signal.
func (sr *SignalReader) Samples() int64 {
	if sr.hdr.DataRecords <= 0 {
		return 0
	}
	return int64(sr.hdr.DataRecords) * int64(sr.samplesPerRecord)
}

// Seek positions the reader on the given zero-based sample.
// Seeking to Samples() is allowed and leaves the reader at EOF.
func (sr *SignalReader) Seek(sample int64) error {
	if sample < 0 || sample > sr.Samples() || sr.samplesPerRecord <= 0 {
		return fmt.Errorf("%w: %d of %d", ErrSampleOutOfRange, sample, sr.Samples())
	}
	sr.currentRecord = int(sample / int64(sr.samplesPerRecord))
	sr.currentSample = int(sample % int64(sr.samplesPerRecord))
	return nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	if sr.samplesPerRecord <= 0 {
		return 0, io.EOF
	}
	buf := make([]byte, 2*sr.samplesPerRecord)

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords {
			return n, io.EOF // End of data records
		}

		// Read the rest of the current record in one go, capped by the space left in data.
		chunk := sr.samplesPerRecord - sr.currentSample
		if left := len(data) - n; chunk > left {
			chunk = left
		}

		pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*sr.recordSize + sr.signalOffset + int64(sr.currentSample)*2
		if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
			return n, fmt.Errorf("error seeking to position: %w", err)
		}
		if _, err := io.ReadFull(sr.r, buf[:chunk*2]); err != nil {
			return n, fmt.Errorf("error reading sample data: %w", err)
		}

		for i := 0; i < chunk; i++ {
			digitalValue := int16(binary.LittleEndian.Uint16(buf[i*2:]))
			data[n+i] = convertDigitalToPhysical(digitalValue, sr.signal.DigitalMin, sr.signal.DigitalMax, sr.signal.PhysicalMin, sr.signal.PhysicalMax)
		}
		n += chunk

		sr.currentSample += chunk
		if sr.currentSample >= sr.samplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}

	return n, nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
