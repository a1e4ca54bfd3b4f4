/************************************************************************************
 *
 * oxicord, a terminal client for Discord
 *
 * SPDX-License-Identifier: BSD-3-Clause
 *
 * Copyright 2026 oxicord contributors
 *
 * Licensed under the BSD 3-Clause License.
 * See the LICENSE file for details.
 *
 ************************************************************************************/

package imagecache

import "time"

// DefaultMaxConcurrentDownloads is the default permit count for the
// network tier (original_source ImageLoaderConfig.max_concurrent_downloads: 4).
const DefaultMaxConcurrentDownloads int64 = 4

// DefaultFetchTimeout is the default per-download HTTP timeout
// (original_source ImageLoaderConfig.timeout_secs: 30).
const DefaultFetchTimeout = 30 * time.Second

// defaultEventBuffer sizes the Loader's published-event channel. Same
// "generous buffer + drop oldest on full" shape as gateway/connection.go,
// since Go has no idiomatic truly-unbounded channel.
const defaultEventBuffer = 256

// fitWidth/fitHeight are the downscale target box for decoded images
// wider than fitThreshold (spec §4.9: "if decoded width > 400,
// downscale to fit 400x300 preserving aspect").
const (
	fitThreshold = 400
	fitWidth     = 400
	fitHeight    = 300
)

type loaderConfig struct {
	memoryCapacity  int
	diskCapacity    int64
	maxConcurrent   int64
	fetchTimeout    time.Duration
	eventBufferSize int
	logger          Logger
}

// Option configures a Loader at construction time.
type Option func(*loaderConfig)

// WithMemoryCapacity sets the memory tier's entry capacity.
func WithMemoryCapacity(entries int) Option {
	return func(c *loaderConfig) { c.memoryCapacity = entries }
}

// WithDiskCapacity sets the disk tier's byte budget.
func WithDiskCapacity(bytes int64) Option {
	return func(c *loaderConfig) { c.diskCapacity = bytes }
}

// WithMaxConcurrentDownloads sets the network tier's permit count.
func WithMaxConcurrentDownloads(n int64) Option {
	return func(c *loaderConfig) { c.maxConcurrent = n }
}

// WithFetchTimeout sets the per-download HTTP timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *loaderConfig) { c.fetchTimeout = d }
}

// WithEventBufferSize sets the published-event channel's buffer size.
func WithEventBufferSize(n int) Option {
	return func(c *loaderConfig) { c.eventBufferSize = n }
}

// WithLoaderLogger injects a Logger; defaults to a no-op.
func WithLoaderLogger(l Logger) Option {
	return func(c *loaderConfig) { c.logger = l }
}

func defaultLoaderConfig() *loaderConfig {
	return &loaderConfig{
		memoryCapacity:  DefaultMemoryCapacity,
		diskCapacity:    DefaultDiskCapacity,
		maxConcurrent:   DefaultMaxConcurrentDownloads,
		fetchTimeout:    DefaultFetchTimeout,
		eventBufferSize: defaultEventBuffer,
		logger:          noopLogger{},
	}
}
