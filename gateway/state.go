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
	"fmt"
	"sync"
	"time"
)

// State is a discrete connection phase (spec §3 ConnectionState).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateWaitingForHello
	StateIdentifying
	StateResuming
	StateConnected
	StateReconnecting
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateWaitingForHello:
		return "waiting_for_hello"
	case StateIdentifying:
		return "identifying"
	case StateResuming:
		return "resuming"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// event is a state-machine transition trigger (spec §4.3).
type event int

const (
	evBeginConnect event = iota
	// evAwaitingHello fires once the socket is dialed, before Hello is
	// actually read off it — it marks "now waiting for Hello", not
	// "Hello received".
	evAwaitingHello
	evIdentifySent
	evResumeSent
	evReadyReceived
	evResumedReceived
	evPeerClosed
	evLocalShutdown
	evAttemptReconnect
	evHeartbeatSent
	evHeartbeatAckReceived
)

// transitions is the total legal-transition table: (current, event) ->
// next. Entries absent from the table are illegal and rejected by
// Machine.apply rather than silently accepted (spec §4.3).
var transitions = map[State]map[event]State{
	StateDisconnected: {
		evBeginConnect: StateConnecting,
	},
	StateConnecting: {
		evAwaitingHello: StateWaitingForHello, // dial succeeded; now waiting to read Hello
		evPeerClosed:    StateReconnecting,
		evLocalShutdown: StateShuttingDown,
	},
	StateWaitingForHello: {
		evIdentifySent: StateIdentifying,
		evResumeSent:   StateResuming,
		evPeerClosed:   StateReconnecting,
		evLocalShutdown: StateShuttingDown,
	},
	StateIdentifying: {
		evReadyReceived: StateConnected,
		evPeerClosed:    StateReconnecting,
		evLocalShutdown: StateShuttingDown,
	},
	StateResuming: {
		evResumedReceived: StateConnected,
		evPeerClosed:      StateReconnecting,
		evLocalShutdown:   StateShuttingDown,
	},
	StateConnected: {
		evPeerClosed:           StateReconnecting,
		evLocalShutdown:        StateShuttingDown,
		evHeartbeatSent:        StateConnected,
		evHeartbeatAckReceived: StateConnected,
	},
	StateReconnecting: {
		evAttemptReconnect: StateConnecting,
		evLocalShutdown:    StateShuttingDown,
	},
}

// illegalTransition is a programmer error: it is rejected, not
// silently swallowed (spec §4.3).
type illegalTransition struct {
	from State
	ev   event
}

func (e illegalTransition) Error() string {
	return fmt.Sprintf("illegal gateway state transition: %s cannot handle event %d", e.from, e.ev)
}

// Machine is the connection state machine plus the heartbeat clock's
// latency sample, guarded by a single mutex since both are updated
// from the connection handler's goroutines and read by the supervisor.
type Machine struct {
	mu             sync.RWMutex
	state          State
	reconnectCount int
	latencyMs      *int64
	lastAckAt      time.Time

	heartbeatInterval time.Duration
	lastHeartbeatSent time.Time
	pendingAck        bool
}

// NewMachine returns a Machine starting in StateDisconnected.
func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

// State returns the current phase.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// apply drives the transition table. Returns illegalTransition if
// (current, ev) has no entry.
func (m *Machine) apply(ev event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.state][ev]
	if !ok {
		return illegalTransition{from: m.state, ev: ev}
	}

	if ev == evAttemptReconnect {
		m.reconnectCount++
	}
	if m.state == StateConnected && next != StateConnected {
		m.reconnectCount = 0
	}

	m.state = next
	return nil
}

// ReconnectAttempt returns how many evAttemptReconnect transitions have
// been applied since the machine last left StateConnected (0 before
// the first one). The count is kept in every state, not only in
// StateReconnecting.
func (m *Machine) ReconnectAttempt() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reconnectCount
}

// RecordAck updates the latency sample on a HeartbeatACK (spec §3
// HeartbeatClock invariant: latency_ms = last_ack - last_sent).
func (m *Machine) RecordAck(latencyMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyMs = &latencyMs
	m.lastAckAt = time.Now()
	m.pendingAck = false
}

// SetHeartbeatInterval records the interval Hello announced for this
// connection attempt; IsHeartbeatOverdue is measured against it.
func (m *Machine) SetHeartbeatInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeatInterval = d
}

// RecordHeartbeatSent marks a beat as sent and awaiting its ack (spec
// §3 HeartbeatClock). Only the first beat sent since the last ack sets
// the send time, so further unacked beats do not restart the clock.
func (m *Machine) RecordHeartbeatSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pendingAck {
		m.lastHeartbeatSent = time.Now()
	}
	m.pendingAck = true
}

// IsHeartbeatOverdue reports whether the oldest unacked beat has gone
// unacked for more than 1.5x the heartbeat interval — the same
// threshold the original implementation's GatewayState.is_heartbeat_overdue
// uses. The heartbeat supervisor (C4) only reports missed acks; this
// boolean is what the connection's steady-state loop (C5) polls to
// decide whether the connection is actually dead.
func (m *Machine) IsHeartbeatOverdue() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.pendingAck || m.heartbeatInterval == 0 {
		return false
	}
	return time.Since(m.lastHeartbeatSent) > time.Duration(1.5*float64(m.heartbeatInterval))
}

// LatencyMs returns the last observed heartbeat latency, if any.
func (m *Machine) LatencyMs() *int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latencyMs == nil {
		return nil
	}
	v := *m.latencyMs
	return &v
}

// canSendOutbound enforces spec §3's ConnectionState invariant:
// outbound commands other than Identify/Resume/Heartbeat are only
// permitted in StateConnected.
func (m *Machine) canSendOutbound(op int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch op {
	case OpIdentify, OpResume, OpHeartbeat:
		return true
	default:
		return m.state == StateConnected
	}
}
