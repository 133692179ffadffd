// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/OpenPSG/segments"
)

const createSegmentsTable = `
	CREATE TABLE IF NOT EXISTS segments (
		id                 VARCHAR PRIMARY KEY,
		signal_name        VARCHAR NOT NULL,
		patient_id         VARCHAR,
		frequency          DOUBLE NOT NULL,
		start_timestamp    BIGINT NOT NULL,
		end_timestamp      BIGINT NOT NULL,
		anomalous          BOOLEAN NOT NULL,
		weight             DOUBLE NOT NULL,
		annotating_sources VARCHAR[],
		anomaly_sources    VARCHAR[],
		source_path        VARCHAR NOT NULL,
		sample_offset      BIGINT NOT NULL,
		sample_count       BIGINT NOT NULL,
		data               DOUBLE[]
	)`

// insertSegment builds the insert for segments with na annotating and nv anomaly sources.
// Each source name is bound as its own parameter.
func insertSegment(na, nv int) string {
	list := func(first, n int) string {
		params := make([]string, n)
		for i := range params {
			params[i] = "$" + strconv.Itoa(first+i)
		}
		return "CAST([" + strings.Join(params, ", ") + "] AS VARCHAR[])"
	}
	return fmt.Sprintf(`
	INSERT OR REPLACE INTO segments VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		%s, %s,
		$9, $10, $11, CAST(CAST($12 AS VARCHAR) AS DOUBLE[])
	)`, list(13, na), list(13+na, nv))
}

// DuckDB stores segments in a "segments" table of a DuckDB database.
type DuckDB struct {
	db *sql.DB
}

// OpenDuckDB opens (or creates) the database at path; an empty path is in-memory.
func OpenDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(createSegmentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create segments table: %w", err)
	}

	return &DuckDB{db: db}, nil
}

// DB exposes the underlying handle for queries.
func (d *DuckDB) DB() *sql.DB {
	return d.db
}

// Insert writes segments in one transaction, replacing rows with the same id.
// Samples are stored only for loaded segments.
func (d *DuckDB) Insert(ctx context.Context, segs []*segments.Segment) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	type shape struct{ annotating, anomaly int }
	stmts := make(map[shape]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	for _, s := range segs {
		key := shape{len(s.AnnotatingSources), len(s.AnomalySources)}
		stmt, ok := stmts[key]
		if !ok {
			stmt, err = tx.PrepareContext(ctx, insertSegment(key.annotating, key.anomaly))
			if err != nil {
				return fmt.Errorf("failed to prepare insert: %w", err)
			}
			stmts[key] = stmt
		}

		var data any
		if s.Loaded() {
			data = floatList(s.Data)
		}
		args := []any{
			s.ID, s.Signal, s.PatientID, s.Frequency, s.Start, s.End, s.Anomalous, s.Weight,
			s.Ref.Path, s.Ref.Offset, s.Ref.Count, data,
		}
		for _, source := range s.AnnotatingSources {
			args = append(args, source)
		}
		for _, source := range s.AnomalySources {
			args = append(args, source)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored segments.
func (d *DuckDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return n, nil
}

// CopyParquet writes the segments table to a Parquet file.
func (d *DuckDB) CopyParquet(ctx context.Context, path string) error {
	query := fmt.Sprintf("COPY (SELECT * FROM segments ORDER BY source_path, signal_name, start_timestamp) TO '%s' (FORMAT PARQUET)",
		strings.ReplaceAll(path, "'", "''"))
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to copy segments to %s: %w", path, err)
	}
	return nil
}

// Close closes the database.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// floatList renders values as a DuckDB list literal.
func floatList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
