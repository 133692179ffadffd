// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package segments

import "errors"

var (
	// ErrAnnotationNotFound is returned when a store has no matching annotation set.
	// Extraction still works and labels every window normal.
	ErrAnnotationNotFound = errors.New("annotation not found")

	// ErrUnknownSignal is returned when a signal is absent from a store.
	ErrUnknownSignal = errors.New("unknown signal")

	// ErrRangeOutOfBounds is returned when a sample range exceeds the extent of a store.
	ErrRangeOutOfBounds = errors.New("sample range out of bounds")

	// ErrSignalNeverFound is returned when no store of a batch contains the requested signal.
	ErrSignalNeverFound = errors.New("signal not found in any store")

	// ErrNoAnnotationParser is returned by AutoAnnotate when no parser was configured.
	ErrNoAnnotationParser = errors.New("no annotation parser configured")
)
