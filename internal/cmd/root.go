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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/internal/config"
)

var (
	configFile string

	v   = viper.New()
	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "segments",
	Short: "Extract labeled fixed-length segments from annotated biomedical recordings",
	Long: `segments splits EDF recordings into fixed-duration windows and labels each window
with the consensus of the annotators that marked anomalous intervals in the matching
.artf files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(v, configFile); err != nil {
			return err
		}
		log, err = cfg.NewLogger()
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: ./segments.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.Duration("window", segments.DefaultWindow, "Segment duration")
	flags.Int("workers", 4, "Recordings processed concurrently")
	flags.String("annotation-ext", ".artf", "Extension of annotation files")

	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = v.BindPFlag("window", flags.Lookup("window"))
	_ = v.BindPFlag("workers", flags.Lookup("workers"))
	_ = v.BindPFlag("annotation_ext", flags.Lookup("annotation-ext"))
}
