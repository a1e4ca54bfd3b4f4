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

import "testing"

func TestReconnectDelay_CapsAtMax(t *testing.T) {
	for _, n := range []int{7, 8, 20} {
		d := reconnectDelay(n)
		if d < backoffMax || d > backoffMax+backoffJitter {
			t.Errorf("attempt %d: expected delay within [%s, %s], got %s", n, backoffMax, backoffMax+backoffJitter, d)
		}
	}
}

func TestReconnectDelay_GrowsExponentially(t *testing.T) {
	prevFloor := backoffBase
	for n := 1; n <= 5; n++ {
		d := reconnectDelay(n)
		if d < backoffBase*(1<<uint(n)) {
			t.Errorf("attempt %d: delay %s below expected floor", n, d)
		}
		if d < prevFloor {
			t.Errorf("attempt %d: delay did not grow from previous attempt", n)
		}
		prevFloor = backoffBase * (1 << uint(n))
	}
}

func TestTriageCloseCode_FatalCodesNeverReconnect(t *testing.T) {
	for code := range fatalCloseCodes {
		a := triageCloseCode(code, true)
		if a.reconnect {
			t.Errorf("code %d: fatal codes must not reconnect", code)
		}
		if !a.clearSession {
			t.Errorf("code %d: fatal codes must clear the session", code)
		}
	}
}

func TestTriageCloseCode_ResumableCodesKeepSession(t *testing.T) {
	for _, code := range []int{CloseUnknownError, CloseUnknownOpcode, CloseDecodeError, CloseRateLimited} {
		a := triageCloseCode(code, true)
		if !a.reconnect {
			t.Errorf("code %d: expected reconnect", code)
		}
		if a.clearSession {
			t.Errorf("code %d: expected session preserved", code)
		}
	}
}

func TestTriageCloseCode_NormalClosureRespectsSessionPresence(t *testing.T) {
	withSession := triageCloseCode(normalClosure, true)
	if withSession.clearSession {
		t.Error("normal closure with a live session should preserve it")
	}
	withoutSession := triageCloseCode(normalClosure, false)
	if !withoutSession.clearSession {
		t.Error("normal closure with no session has nothing to preserve")
	}
}
