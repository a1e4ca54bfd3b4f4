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

package gateway

import "github.com/rs/zerolog"

// Logger is the small leveled-logging seam this package depends on.
// zerolog.Logger does not satisfy it directly: NewZerologLogger adapts
// one, and WithZerologLogger installs the adapted logger. Any other
// implementation can be passed in via WithLogger.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error, msg string)
}

// zlogAdapter adapts a zerolog.Logger to Logger.
type zlogAdapter struct {
	z zerolog.Logger
}

// NewZerologLogger wraps z as a gateway Logger.
func NewZerologLogger(z zerolog.Logger) Logger {
	return zlogAdapter{z: z.With().Str("component", "gateway").Logger()}
}

func (a zlogAdapter) Debug(msg string)          { a.z.Debug().Msg(msg) }
func (a zlogAdapter) Info(msg string)           { a.z.Info().Msg(msg) }
func (a zlogAdapter) Warn(msg string)           { a.z.Warn().Msg(msg) }
func (a zlogAdapter) Error(err error, msg string) { a.z.Error().Err(err).Msg(msg) }

// noopLogger discards everything; used when the caller never supplies
// one via WithLogger.
type noopLogger struct{}

func (noopLogger) Debug(string)        {}
func (noopLogger) Info(string)         {}
func (noopLogger) Warn(string)         {}
func (noopLogger) Error(error, string) {}
