// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	segs := extract(t, true)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, segs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, segments.Columns, rows[0])

	anomalous := rows[2]
	assert.Equal(t, segs[1].ID, anomalous[0])
	assert.Equal(t, "true", anomalous[6])
	assert.Equal(t, "0.5", anomalous[7])
	assert.Equal(t, "A", anomalous[9])
	assert.Len(t, strings.Split(anomalous[13], ";"), 250)

	assert.Empty(t, rows[3][13], "unloaded segments have no data")
}

func TestCSVDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	segs := extract(t, false)

	paths, err := export.CSVDir(dir, segs)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "icp_0.50_"+segs[1].ID+".csv"), paths[1])

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, segs[1].ID, rows[1][0])
}
