// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/export"
)

var (
	extractDir         string
	extractSignal      string
	extractOutput      string
	extractAnnotation  string
	extractFormat      string
	extractBalance     int
	extractFailFast    bool
	extractUnannotated bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and export the labeled segments of every recording in a folder",
	Long: `Extract walks a folder of recordings, labels the segments of one signal with the
annotations found next to each recording (or in --annotations), loads their samples and
exports them as one CSV or EDF file per segment, or as a DuckDB database or Parquet file.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringVarP(&extractDir, "dir", "d", "", "Folder containing the recordings")
	flags.StringVarP(&extractSignal, "signal", "s", "", "Signal to extract")
	flags.StringVarP(&extractOutput, "output", "o", "", "Output directory, or database/Parquet file")
	flags.StringVarP(&extractAnnotation, "annotations", "a", "", "Folder containing the annotation files (default: next to each recording)")
	flags.StringVar(&extractFormat, "format", "csv", "Output format: csv, edf, duckdb or parquet")
	flags.IntVar(&extractBalance, "balance", 0, "Keep at most this many normal segments per anomalous one (0 keeps all)")
	flags.BoolVar(&extractFailFast, "fail-fast", false, "Stop at the first recording that fails")
	flags.BoolVar(&extractUnannotated, "unannotated", false, "Also export recordings without annotations, every segment labeled normal")
	_ = extractCmd.MarkFlagRequired("dir")
	_ = extractCmd.MarkFlagRequired("signal")
	_ = extractCmd.MarkFlagRequired("output")

	_ = v.BindPFlag("annotation_dir", flags.Lookup("annotations"))
	_ = v.BindPFlag("balance", flags.Lookup("balance"))
	_ = v.BindPFlag("fail_fast", flags.Lookup("fail-fast"))
	_ = v.BindPFlag("unannotated", flags.Lookup("unannotated"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	agg, err := segments.NewAggregateExtractor(ctx, extractDir, cfg.Options(log)...)
	if err != nil {
		return err
	}
	defer agg.Close()

	annotated, err := agg.AutoAnnotate(ctx)
	if err != nil {
		return err
	}
	log.WithField("annotated", annotated).Infof("annotated %d of %d recordings", annotated, len(agg.Files()))

	normal, anomalous, err := agg.Extract(ctx, extractSignal)
	if err != nil {
		return err
	}
	normal = segments.Balance(normal, anomalous, cfg.Balance)

	all := append(append([]*segments.Segment{}, normal...), anomalous...)
	if err := agg.LoadData(ctx, all); err != nil {
		return err
	}

	n, err := exportSegments(cmd, all)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d segments (%d normal, %d anomalous) to %s\n",
		n, len(normal), len(anomalous), extractOutput)
	return nil
}

func exportSegments(cmd *cobra.Command, segs []*segments.Segment) (int, error) {
	switch extractFormat {
	case "csv":
		paths, err := export.CSVDir(extractOutput, segs)
		return len(paths), err
	case "edf":
		paths, err := export.EDFDir(extractOutput, segs)
		return len(paths), err
	case "duckdb", "parquet":
		if err := os.MkdirAll(filepath.Dir(extractOutput), 0o755); err != nil {
			return 0, err
		}
		dbPath := extractOutput
		if extractFormat == "parquet" {
			dbPath = "" // staged in memory, then copied out
		}

		db, err := export.OpenDuckDB(dbPath)
		if err != nil {
			return 0, err
		}
		defer db.Close()

		if err := db.Insert(cmd.Context(), segs); err != nil {
			return 0, err
		}
		if extractFormat == "parquet" {
			if err := db.CopyParquet(cmd.Context(), extractOutput); err != nil {
				return 0, err
			}
		}
		return db.Count(cmd.Context())
	default:
		return 0, fmt.Errorf("unknown format %q", extractFormat)
	}
}
