// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenPSG/segments"
	"github.com/OpenPSG/segments/internal/config"
)

func isolate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "segments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, segments.DefaultWindow, cfg.Window)
	assert.Equal(t, ".edf", cfg.StoreExt)
	assert.Equal(t, ".artf", cfg.AnnotationExt)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.FailFast)
	assert.False(t, cfg.Unannotated)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
window: 30s
workers: 2
balance: 3
fail_fast: true
unannotated: true
annotation_dir: /data/annotations
log_format: json
`)

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Window)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.Balance)
	assert.True(t, cfg.FailFast)
	assert.True(t, cfg.Unannotated)
	assert.Equal(t, "/data/annotations", cfg.AnnotationDir)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("segments.yaml", []byte("window: 5s\n"), 0o644))

	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Window)
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "workers: 2\n")
	t.Setenv("SEGMENTS_WORKERS", "7")
	t.Setenv("SEGMENTS_WINDOW", "1m")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(viper.New(), writeConfig(t, "window: 0s\n"))
	require.Error(t, err)

	_, err = config.Load(viper.New(), writeConfig(t, "workers: 0\n"))
	require.Error(t, err)

	_, err = config.Load(viper.New(), writeConfig(t, "store_ext: edf\n"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	log, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = (&config.Config{LogLevel: "loud"}).NewLogger()
	require.Error(t, err)

	_, err = (&config.Config{LogLevel: "info", LogFormat: "xml"}).NewLogger()
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	isolate(t)
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	log, err := cfg.NewLogger()
	require.NoError(t, err)

	a, err := segments.NewAggregateExtractor(context.Background(), t.TempDir(), cfg.Options(log)...)
	require.NoError(t, err)
	defer a.Close()
	assert.Empty(t, a.Files())
}
