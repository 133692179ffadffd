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
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OpenPSG/segments"
)

var (
	infoFile  string
	infoStats bool
	infoYAML  bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the signals of a recording and their annotation coverage",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoFile, "file", "f", "", "Path to the recording (with an optional annotation file next to it)")
	infoCmd.Flags().BoolVar(&infoStats, "stats", false, "Read every sample and print value statistics")
	infoCmd.Flags().BoolVar(&infoYAML, "yaml", false, "Print the summary as YAML")
	_ = infoCmd.MarkFlagRequired("file")
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, err := segments.OpenSingleSource(ctx, infoFile, cfg.Options(log)...)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.AutoAnnotate(ctx); err != nil {
		if !errors.Is(err, segments.ErrAnnotationNotFound) {
			return err
		}
		log.WithField("path", infoFile).Info("no annotations found")
	}

	if infoYAML {
		sum, err := e.Summary(ctx)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(sum)
	}

	desc, err := e.Describe(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(out, desc)

	if !infoStats {
		return nil
	}
	for _, name := range e.SignalNames() {
		data, err := e.RawData(ctx, name)
		if err != nil {
			return err
		}
		st := computeStats(data)
		fmt.Fprintf(out, "\n%s values\n", name)
		fmt.Fprintf(out, "  Missing: %d (%.2f%%)\n", st.missing, st.missingPct())
		if st.valid > 0 {
			fmt.Fprintf(out, "  Min:     %.2f\n", st.min)
			fmt.Fprintf(out, "  Max:     %.2f\n", st.max)
			fmt.Fprintf(out, "  Mean:    %.2f\n", st.mean)
		}
	}
	return nil
}

type stats struct {
	valid, missing int
	min, max, mean float64
}

func (s stats) missingPct() float64 {
	if total := s.valid + s.missing; total > 0 {
		return float64(s.missing) / float64(total) * 100
	}
	return 0
}

// computeStats summarizes the values, treating NaN as missing.
func computeStats(data []float64) stats {
	st := stats{min: math.Inf(1), max: math.Inf(-1)}
	var sum float64
	for _, x := range data {
		if math.IsNaN(x) {
			st.missing++
			continue
		}
		st.valid++
		sum += x
		st.min = math.Min(st.min, x)
		st.max = math.Max(st.max, x)
	}
	if st.valid > 0 {
		st.mean = sum / float64(st.valid)
	}
	return st
}
