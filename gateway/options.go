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

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// defaultGatewayURL is used whenever the session has no resume URL
// yet (spec §4.5 step 1, §6).
const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json&compress=zlib-stream"

// config holds every constructor-time setting. It is only mutated by
// Option functions, then frozen once New returns.
type config struct {
	token           string
	intents         Intents
	properties      IdentifyProperties
	gatewayURL      string
	logger          Logger
	maxAttempts     int
	largeThreshold  int
}

// Option configures a Client during construction.
type Option func(*config)

// WithToken sets the bot token. Any "Bot " prefix is stripped, the
// same normalization the teacher's cluster option applies.
func WithToken(token string) Option {
	return func(c *config) {
		c.token = strings.TrimPrefix(token, "Bot ")
	}
}

// WithIntents replaces the configured intent set (DefaultIntents unless
// changed) with the OR of every given intent.
func WithIntents(intents ...Intents) Option {
	return func(c *config) {
		var total Intents
		for _, i := range intents {
			total = BitMaskAdd(total, i)
		}
		c.intents = total
	}
}

// WithLogger installs a custom Logger. Passing nil is a no-op; the
// default is a noopLogger.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithZerologLogger is a convenience wrapper for the common case of
// wiring a zerolog.Logger straight in.
func WithZerologLogger(z zerolog.Logger) Option {
	return WithLogger(NewZerologLogger(z))
}

// WithGatewayURL overrides the default gateway URL (tests / proxies).
func WithGatewayURL(url string) Option {
	return func(c *config) { c.gatewayURL = url }
}

// WithMaxReconnectAttempts overrides the supervisor's reconnect
// attempt budget (default 10, spec §4.6).
func WithMaxReconnectAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithIdentifyProperties overrides the $os/$browser/$device triple
// sent in Identify. Defaults describe this binary running on the
// host OS.
func WithIdentifyProperties(p IdentifyProperties) Option {
	return func(c *config) { c.properties = p }
}

func defaultConfig() *config {
	return &config{
		intents:    DefaultIntents,
		gatewayURL: defaultGatewayURL,
		logger:     noopLogger{},
		maxAttempts: 10,
		largeThreshold: 250,
		properties: IdentifyProperties{
			OS:      runtime.GOOS,
			Browser: "oxicord",
			Device:  "oxicord",
		},
	}
}
