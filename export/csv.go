// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package export writes labeled segments to files and tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenPSG/segments"
)

// WriteCSV writes a header and one row per segment.
func WriteCSV(w io.Writer, segs []*segments.Segment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(segments.Columns); err != nil {
		return err
	}
	for _, s := range segs {
		if err := cw.Write(s.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVDir writes every segment to its own <signal>_<weight>_<id>.csv file in dir and
// returns the written paths.
func CSVDir(dir string, segs []*segments.Segment) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(segs))
	for _, s := range segs {
		path := filepath.Join(dir, s.FileName()+".csv")
		if err := writeFile(path, func(w io.Writer) error {
			return WriteCSV(w, []*segments.Segment{s})
		}); err != nil {
			return paths, fmt.Errorf("error writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
