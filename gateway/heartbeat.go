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
	"context"
	"math/rand"
	"sync/atomic"
	"time"
)

// heartbeater drives the periodic Heartbeat/HeartbeatACK cycle for one
// connection attempt (spec §4.4 / C4). It owns no socket; it asks its
// caller to send and only logs a warning when the previous beat was not
// acked. Overdue detection is Machine.IsHeartbeatOverdue's job.
// heartbeatJitterPercent is HEARTBEAT_JITTER_PERCENT from the original
// implementation's constants.rs: the first beat fires slightly early,
// not at a random point across the whole interval.
const heartbeatJitterPercent = 0.05

type heartbeater struct {
	interval      time.Duration
	seq           func() *int64
	send          func(seq *int64) error
	onSendFailure func()
	machine       *Machine
	logger        Logger

	acked   atomic.Bool
	sentAt  atomic.Int64 // UnixNano of the last beat sent
	stop    chan struct{}
	stopped chan struct{}
}

func newHeartbeater(interval time.Duration, m *Machine, l Logger, seq func() *int64, send func(seq *int64) error, onSendFailure func()) *heartbeater {
	h := &heartbeater{
		interval:      interval,
		seq:           seq,
		send:          send,
		onSendFailure: onSendFailure,
		machine:       m,
		logger:        l,
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	h.acked.Store(true)
	if m != nil {
		m.SetHeartbeatInterval(interval)
	}
	return h
}

// run blocks until ctx is cancelled, Stop is called, or the send
// itself fails. The first beat fires after interval minus up to 5%
// jitter (spec §4.4, original_source/.../heartbeat.rs:44-45 and
// constants.rs:6's HEARTBEAT_JITTER_PERCENT), not a random point
// across the whole interval.
func (h *heartbeater) run(ctx context.Context) {
	defer close(h.stopped)

	firstDelay := firstHeartbeatDelay(h.interval)
	select {
	case <-time.After(firstDelay):
	case <-h.stop:
		return
	case <-ctx.Done():
		return
	}

	if !h.beat() {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A missed ack is only reported, never acted on here — C4
			// does not decide to reconnect (spec §4.4). Machine tracks
			// how overdue the ack is; the connection's steady-state
			// loop is what actually closes the socket once it's overdue
			// past the 1.5x threshold.
			if !h.acked.Load() {
				h.logger.Warn("heartbeat not acked before next tick")
			}
			if !h.beat() {
				return
			}
		}
	}
}

// firstHeartbeatDelay computes the first beat's delay: the full
// interval minus up to heartbeatJitterPercent of it, never the whole
// interval replaced by a random value (spec §4.4, original_source/
// .../heartbeat.rs:44-45, constants.rs:6's HEARTBEAT_JITTER_PERCENT).
func firstHeartbeatDelay(interval time.Duration) time.Duration {
	jitterMax := time.Duration(float64(interval) * heartbeatJitterPercent)
	return interval - jitterMax + time.Duration(rand.Float64()*float64(jitterMax))
}

func (h *heartbeater) beat() bool {
	h.acked.Store(false)
	h.sentAt.Store(time.Now().UnixNano())
	if h.machine != nil {
		h.machine.RecordHeartbeatSent()
	}
	if err := h.send(h.seq()); err != nil {
		h.logger.Warn("heartbeat send failed")
		h.onSendFailure()
		return false
	}
	return true
}

// ack records a HeartbeatACK and reports the observed latency as the
// time since the most recently sent beat.
func (h *heartbeater) ack() {
	h.acked.Store(true)
	sent := h.sentAt.Load()
	if sent == 0 || h.machine == nil {
		return
	}
	h.machine.RecordAck(time.Since(time.Unix(0, sent)).Milliseconds())
}

func (h *heartbeater) Stop() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.stopped
}
