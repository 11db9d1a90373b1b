// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrInvalidTotalCPUs is returned when total CPUs is not positive.
	ErrInvalidTotalCPUs = errors.New("total cpus must be greater than 0")

	// ErrInvalidTotalMem is returned when total memory is not positive.
	ErrInvalidTotalMem = errors.New("total memory must be greater than 0")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("poll interval must be greater than 0")

	// ErrInvalidThreshold is returned when the elastic scale threshold is out of range.
	ErrInvalidThreshold = errors.New("elastic threshold must be between 0 and 100")
)
