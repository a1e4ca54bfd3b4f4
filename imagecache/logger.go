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

import "github.com/rs/zerolog"

// Logger is the same small leveled seam gateway.Logger exposes; kept
// as a separate type here so imagecache has no import dependency on
// gateway (the two packages are siblings, not layered on each other).
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error, msg string)
}

type zlogAdapter struct{ z zerolog.Logger }

// NewZerologLogger adapts a zerolog.Logger to Logger.
func NewZerologLogger(z zerolog.Logger) Logger { return zlogAdapter{z: z} }

func (l zlogAdapter) Debug(msg string)            { l.z.Debug().Msg(msg) }
func (l zlogAdapter) Info(msg string)             { l.z.Info().Msg(msg) }
func (l zlogAdapter) Warn(msg string)             { l.z.Warn().Msg(msg) }
func (l zlogAdapter) Error(err error, msg string) { l.z.Error().Err(err).Msg(msg) }

type noopLogger struct{}

func (noopLogger) Debug(string)            {}
func (noopLogger) Info(string)             {}
func (noopLogger) Warn(string)             {}
func (noopLogger) Error(error, string) {}
