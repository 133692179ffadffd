// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/artf"
	"github.com/OpenPSG/segments/edfstore"
)

// Config holds the settings shared by every command.
type Config struct {
	Window        time.Duration `mapstructure:"window"`
	StoreExt      string        `mapstructure:"store_ext"`
	AnnotationExt string        `mapstructure:"annotation_ext"`
	AnnotationDir string        `mapstructure:"annotation_dir"`
	Workers       int           `mapstructure:"workers"`
	FailFast      bool          `mapstructure:"fail_fast"`
	Unannotated   bool          `mapstructure:"unannotated"`
	Balance       int           `mapstructure:"balance"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("window", segments.DefaultWindow)
	v.SetDefault("store_ext", ".edf")
	v.SetDefault("annotation_ext", artf.Ext)
	v.SetDefault("annotation_dir", "")
	v.SetDefault("workers", 4)
	v.SetDefault("fail_fast", false)
	v.SetDefault("unannotated", false)
	v.SetDefault("balance", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from file (explicit, or segments.yaml in the working directory
// or $HOME/.config/segments) and SEGMENTS_* environment variables on top of the defaults.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("segments")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("segments")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "segments"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the extractors cannot work with.
func (c *Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Balance < 0 {
		return fmt.Errorf("balance must not be negative, got %d", c.Balance)
	}
	if !strings.HasPrefix(c.StoreExt, ".") || !strings.HasPrefix(c.AnnotationExt, ".") {
		return fmt.Errorf("extensions must start with a dot")
	}
	return nil
}

// Options turns the configuration into extractor options.
func (c *Config) Options(log logrus.FieldLogger) []segments.Option {
	return []segments.Option{
		segments.WithWindow(c.Window),
		segments.WithLogger(log),
		segments.WithResolver(segments.SuffixResolver{Ext: c.AnnotationExt, Dir: c.AnnotationDir}),
		segments.WithParser(artf.Parser{}),
		segments.WithOpener(edfstore.Opener),
		segments.WithStoreExt(c.StoreExt),
		segments.WithWorkers(c.Workers),
		segments.WithFailFast(c.FailFast),
		segments.WithUnannotated(c.Unannotated),
	}
}

// NewLogger builds the logger described by the configuration.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return log, nil
}
