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
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFirstHeartbeatDelay_WithinFivePercentOfInterval(t *testing.T) {
	interval := 1000 * time.Millisecond
	floor := interval - time.Duration(float64(interval)*heartbeatJitterPercent)

	for i := 0; i < 50; i++ {
		d := firstHeartbeatDelay(interval)
		if d < floor || d > interval {
			t.Fatalf("delay %v outside [%v, %v]", d, floor, interval)
		}
	}
}

func TestHeartbeater_MissedAckDoesNotStopBeating(t *testing.T) {
	var sends atomic.Int64
	var failed atomic.Bool

	h := newHeartbeater(10*time.Millisecond, nil, noopLogger{}, func() *int64 { return nil },
		func(seq *int64) error { sends.Add(1); return nil },
		func() { failed.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.run(ctx)
	defer h.Stop()

	// Never ack: the ticker loop must keep beating instead of calling
	// onSendFailure, since a late ack is reported, not acted on, by C4.
	time.Sleep(60 * time.Millisecond)

	if sends.Load() < 2 {
		t.Fatalf("expected multiple beats despite no acks, got %d", sends.Load())
	}
	if failed.Load() {
		t.Fatal("a merely-unacked beat must not trigger onSendFailure")
	}
}

func TestHeartbeater_SendFailureStopsAndReports(t *testing.T) {
	failed := make(chan struct{}, 1)

	h := newHeartbeater(5*time.Millisecond, nil, noopLogger{}, func() *int64 { return nil },
		func(seq *int64) error { return errors.New("send boom") },
		func() { select { case failed <- struct{}{}: default: } })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.run(ctx)
	defer h.Stop()

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onSendFailure to fire after a failed send")
	}
}

func TestHeartbeater_RecordsBeatsOnMachine(t *testing.T) {
	m := NewMachine()
	acked := make(chan struct{})
	h := newHeartbeater(10*time.Millisecond, m, noopLogger{}, func() *int64 { return nil },
		func(seq *int64) error {
			select {
			case <-acked:
			default:
				close(acked)
			}
			return nil
		}, func() {})
	defer h.Stop()

	if m.IsHeartbeatOverdue() {
		t.Fatal("must not be overdue before the first beat")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.run(ctx)

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the first beat to have been sent by now")
	}

	// The beat landed but was never acked; far past 1.5x the 10ms
	// interval it must read as overdue.
	time.Sleep(20 * time.Millisecond)
	if !m.IsHeartbeatOverdue() {
		t.Fatal("expected Machine to reflect the unacked beat as overdue")
	}

	h.ack()
	if m.IsHeartbeatOverdue() {
		t.Fatal("expected overdue to clear once acked")
	}
}
