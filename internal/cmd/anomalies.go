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
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenPSG/segments"
)

var (
	anomaliesFile   string
	anomaliesSignal string
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List the anomalous segments of one signal and who annotated them",
	RunE:  runAnomalies,
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)

	anomaliesCmd.Flags().StringVarP(&anomaliesFile, "file", "f", "", "Path to the recording (with its annotation file)")
	anomaliesCmd.Flags().StringVarP(&anomaliesSignal, "signal", "s", "", "Signal to analyze (e.g. art, abp, icp)")
	_ = anomaliesCmd.MarkFlagRequired("file")
	_ = anomaliesCmd.MarkFlagRequired("signal")
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Analyzing file: %s\n", filepath.Base(anomaliesFile))
	fmt.Fprintf(out, "Signal: %s\n", anomaliesSignal)
	fmt.Fprintln(out, strings.Repeat("-", 60))

	e, err := segments.OpenSingleSource(ctx, anomaliesFile, cfg.Options(log)...)
	if err != nil {
		return err
	}
	defer e.Close()

	names := e.SignalNames()
	fmt.Fprintf(out, "Available signals: %s\n", strings.Join(names, ", "))
	if !slices.Contains(names, anomaliesSignal) {
		return fmt.Errorf("%w: %q, choose one of: %s", segments.ErrUnknownSignal, anomaliesSignal, strings.Join(names, ", "))
	}

	if err := e.AutoAnnotate(ctx); err != nil {
		return err
	}

	_, anomalous, err := e.Extract(ctx, anomaliesSignal)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nFound %d anomalous segments\n", len(anomalous))

	counts := e.AnnotatedAnomalies(anomaliesSignal)
	if len(counts) > 0 {
		fmt.Fprintln(out, "\nAnnotators:")
		annotators := make([]string, 0, len(counts))
		for name := range counts {
			annotators = append(annotators, name)
		}
		slices.Sort(annotators)
		for _, name := range annotators {
			fmt.Fprintf(out, "  %s: %d anomalies\n", name, counts[name])
		}
	}

	if len(anomalous) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nAnomaly details:")
	fmt.Fprintf(out, "%5s | %-23s | %10s | %8s | %10s\n", "Index", "Start Time", "Duration", "Weight", "Patient ID")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for i, s := range anomalous {
		fmt.Fprintf(out, "%5d | %-23s | %9.2fs | %8.2f | %10s\n",
			i+1, segments.TimeOf(s.Start).Format("2006-01-02 15:04:05.000"), s.Duration().Seconds(), s.Weight, s.PatientID)
	}
	return nil
}
