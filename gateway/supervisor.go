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
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// eventBufferSize is the practical stand-in for the spec's
// "unbounded" event channel (spec §5) — see connection.emit.
const eventBufferSize = 1024

// Client is the public gateway engine: it owns the session and state
// machine across reconnects and drives the supervisor loop (spec §4.6
// / C6). Construct one with New, subscribe to Events(), then call
// Run.
type Client struct {
	cfg     *config
	session *Session
	machine *Machine
	logger  Logger

	events chan Event

	mu      sync.Mutex
	current *connection
	closing atomic.Bool
}

// New builds a Client from the given options. Panics are never used
// for configuration mistakes here — unlike the teacher's log.Fatal
// calls in its Option constructors, a library embedded in a terminal
// UI should never exit the whole process out from under its caller.
func New(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		cfg:     cfg,
		session: &Session{},
		machine: NewMachine(),
		logger:  cfg.logger,
		events:  make(chan Event, eventBufferSize),
	}
}

// Events returns the channel of published Events (spec §4.5
// "Published event kinds"). The channel is never closed while the
// Client is running; it closes once Run returns.
func (cl *Client) Events() <-chan Event { return cl.events }

// Session exposes the session store for read-only observers (spec
// §4.2: "the supervisor only reads").
func (cl *Client) Session() *Session { return cl.session }

// State returns the current connection phase.
func (cl *Client) State() State { return cl.machine.State() }

// Run drives the supervisor loop until ctx is cancelled or the
// reconnect budget is exhausted or a fatal close code is observed.
// It closes the Events channel before returning.
func (cl *Client) Run(ctx context.Context) error {
	defer close(cl.events)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn := cl.startConnection()
		err := cl.runOnce(ctx, conn)
		cl.clearConnection()

		if err == nil || ctx.Err() != nil || cl.closing.Load() {
			return ctx.Err()
		}

		gwErr, ok := err.(*Error)
		if !ok {
			gwErr = WebSocketError(err)
		}

		hadSession := cl.session.CanResume()
		action := closeAction{reconnect: gwErr.ShouldReconnect()}
		if ce, ok := asConnectionClosed(gwErr); ok {
			action = triageCloseCode(ce.Code, hadSession)
		} else if gwErr.Kind == ErrSessionInvalidated {
			action = closeAction{clearSession: !gwErr.Resumable, reconnect: true}
		} else if gwErr.Kind == ErrAuthenticationFailed {
			action = closeAction{clearSession: true, reconnect: false}
		}

		cl.publish(Event{Kind: EventDisconnected, Reason: gwErr.Error(), CanResume: gwErr.CanResume() && !action.clearSession})

		if action.clearSession {
			cl.session.ClearAll()
		}
		if !action.reconnect {
			cl.publishError(gwErr, false)
			return gwErr
		}

		attempt++
		if attempt > cl.cfg.maxAttempts {
			final := ReconnectLimitExceeded(attempt - 1)
			cl.publishError(final, false)
			return final
		}

		cl.machine.apply(evAttemptReconnect)
		cl.publish(Event{Kind: EventReconnecting, Attempt: attempt})
		cl.publishError(gwErr, true)

		delay := reconnectDelay(attempt)
		if gwErr.Kind == ErrSessionInvalidated && gwErr.Resumable {
			delay = 100 * time.Millisecond // "reconnects immediately with a brief delay"
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce connects and runs a single connection attempt, recovering
// from panics the same way the spec's "panic containment" requires
// (spec §4.6).
func (cl *Client) runOnce(ctx context.Context, conn *connection) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: ErrWebSocket, Message: fmt.Sprintf("panic in connection handler: %v", r)}
		}
	}()

	if err := conn.connect(ctx); err != nil {
		return err
	}
	return conn.run(ctx)
}

func (cl *Client) startConnection() *connection {
	conn := newConnection(cl.cfg, cl.session, cl.machine, cl.logger, cl.events)
	cl.mu.Lock()
	cl.current = conn
	cl.mu.Unlock()
	return conn
}

func (cl *Client) clearConnection() {
	cl.mu.Lock()
	cl.current = nil
	cl.mu.Unlock()
}

// Send queues an outbound gateway command (PresenceUpdate,
// VoiceStateUpdate, RequestGuildMembers, ...). It fails if no
// connection is currently established.
func (cl *Client) Send(op int, data any) error {
	cl.mu.Lock()
	conn := cl.current
	cl.mu.Unlock()
	if conn == nil {
		return &Error{Kind: ErrNotConnected, Message: "no active connection"}
	}
	return conn.Send(op, data)
}

// Shutdown requests a graceful stop; Run will return once the current
// connection closes cleanly.
func (cl *Client) Shutdown() {
	if !cl.closing.CompareAndSwap(false, true) {
		return
	}
	cl.machine.apply(evLocalShutdown)
	cl.mu.Lock()
	conn := cl.current
	cl.mu.Unlock()
	if conn != nil {
		conn.closeSocket(normalClosure)
	}
}

func (cl *Client) publish(ev Event) {
	select {
	case cl.events <- ev:
	default:
	}
}

func (cl *Client) publishError(err *Error, recoverable bool) {
	cl.publish(Event{Kind: EventError, Err: err, Recoverable: recoverable})
}

func asConnectionClosed(err *Error) (*Error, bool) {
	if err != nil && err.Kind == ErrConnectionClosed {
		return err, true
	}
	return nil, false
}
