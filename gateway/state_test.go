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
	"testing"
	"time"
)

func TestMachine_HappyPathIdentify(t *testing.T) {
	m := NewMachine()
	steps := []event{evBeginConnect, evAwaitingHello, evIdentifySent, evReadyReceived}
	want := []State{StateConnecting, StateWaitingForHello, StateIdentifying, StateConnected}

	for i, ev := range steps {
		if err := m.apply(ev); err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if got := m.State(); got != want[i] {
			t.Fatalf("step %d: expected state %s, got %s", i, want[i], got)
		}
	}
}

func TestMachine_HappyPathResume(t *testing.T) {
	m := NewMachine()
	for _, ev := range []event{evBeginConnect, evAwaitingHello, evResumeSent, evResumedReceived} {
		if err := m.apply(ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m.State() != StateConnected {
		t.Fatalf("expected connected, got %s", m.State())
	}
}

func TestMachine_IllegalTransitionRejected(t *testing.T) {
	m := NewMachine()
	// Cannot identify before hello in a fresh machine.
	if err := m.apply(evIdentifySent); err == nil {
		t.Fatal("expected illegal transition error, got nil")
	}
	if m.State() != StateDisconnected {
		t.Fatalf("illegal transition must not mutate state, got %s", m.State())
	}
}

func TestMachine_ReconnectCounterResetsOnConnect(t *testing.T) {
	m := NewMachine()
	m.apply(evBeginConnect)
	m.apply(evPeerClosed)
	m.apply(evAttemptReconnect)
	m.apply(evPeerClosed)
	m.apply(evAttemptReconnect)
	if got := m.ReconnectAttempt(); got != 2 {
		t.Fatalf("expected 2 reconnect attempts, got %d", got)
	}

	m.apply(evAwaitingHello)
	m.apply(evIdentifySent)
	m.apply(evReadyReceived)
	if m.State() != StateConnected {
		t.Fatalf("expected connected, got %s", m.State())
	}
	m.apply(evPeerClosed)
	if got := m.ReconnectAttempt(); got != 0 {
		t.Fatalf("expected reconnect counter reset after reaching Connected, got %d", got)
	}
}

func TestMachine_LatencyRecordedOnAck(t *testing.T) {
	m := NewMachine()
	if m.LatencyMs() != nil {
		t.Fatal("expected no latency sample before first ack")
	}
	m.RecordAck(42)
	if got := m.LatencyMs(); got == nil || *got != 42 {
		t.Fatalf("expected latency 42, got %v", got)
	}
}

func TestMachine_HeartbeatNotOverdueBeforeAnyBeat(t *testing.T) {
	m := NewMachine()
	m.SetHeartbeatInterval(10 * time.Millisecond)
	if m.IsHeartbeatOverdue() {
		t.Fatal("must not be overdue before any heartbeat is sent")
	}
}

func TestMachine_HeartbeatNotOverdueOnceAcked(t *testing.T) {
	m := NewMachine()
	m.SetHeartbeatInterval(10 * time.Millisecond)
	m.RecordHeartbeatSent()
	m.RecordAck(1)
	if m.IsHeartbeatOverdue() {
		t.Fatal("must not be overdue once the ack clears pendingAck")
	}
}

func TestMachine_HeartbeatOverdueAfter1Point5xInterval(t *testing.T) {
	m := NewMachine()
	m.SetHeartbeatInterval(10 * time.Millisecond)
	m.RecordHeartbeatSent()
	if m.IsHeartbeatOverdue() {
		t.Fatal("must not be overdue immediately after sending")
	}
	time.Sleep(16 * time.Millisecond) // past 1.5x the 10ms interval
	if !m.IsHeartbeatOverdue() {
		t.Fatal("expected overdue once unacked past 1.5x the heartbeat interval")
	}
}

func TestMachine_CanSendOutbound(t *testing.T) {
	m := NewMachine()
	if !m.canSendOutbound(OpIdentify) {
		t.Error("Identify must always be sendable")
	}
	if m.canSendOutbound(OpPresenceUpdate) {
		t.Error("PresenceUpdate should be rejected before Connected")
	}

	m.apply(evBeginConnect)
	m.apply(evAwaitingHello)
	m.apply(evIdentifySent)
	m.apply(evReadyReceived)
	if !m.canSendOutbound(OpPresenceUpdate) {
		t.Error("PresenceUpdate should be allowed once Connected")
	}
}
