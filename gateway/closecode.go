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

// closeAction is what the supervisor does in response to a close
// code (spec §4.6 triage table).
type closeAction struct {
	clearSession bool
	reconnect    bool
}

// triageCloseCode maps a close code to the action the supervisor
// takes. hadSession tells the "other / normal closure" row whether to
// preserve or clear (spec: "Resumable iff session present").
func triageCloseCode(code int, hadSession bool) closeAction {
	if IsFatalCloseCode(code) {
		return closeAction{clearSession: true, reconnect: false}
	}
	switch code {
	case CloseUnknownError, CloseUnknownOpcode, CloseDecodeError,
		CloseNotAuthenticated, CloseInvalidSeq, CloseRateLimited, CloseSessionTimedOut:
		return closeAction{clearSession: false, reconnect: true}
	default:
		// normal closure (1000) and anything unrecognized: resumable
		// only if a session currently exists.
		return closeAction{clearSession: !hadSession, reconnect: true}
	}
}
