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

// Package gateway implements the Discord Gateway v10 protocol engine:
// the Hello/Identify/Resume handshake, heartbeat supervision, streaming
// zlib-stream decompression, opcode dispatch, and the reconnect
// supervisor that drives a single connection across many attempts.
//
// The package never touches a terminal or a socket it doesn't own —
// callers subscribe to a channel of Event values and feed commands
// through Client's exported methods. Rendering, REST calls, token
// storage and configuration all live outside this package.
package gateway
