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
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const (
	connectTimeout = 30 * time.Second
	helloTimeout   = 10 * time.Second
	readyTimeout   = 10 * time.Second
)

// outboundFrame is one queued write to the socket.
type outboundFrame struct {
	op   int
	data any
}

// connection is one attempt at a gateway session (spec §4.5, C5). It
// owns the socket, the codec, and the heartbeat supervisor for as
// long as that socket lives; the Client (C6) creates a fresh
// connection for every attempt.
type connection struct {
	cfg     *config
	session *Session
	machine *Machine
	logger  Logger

	conn     net.Conn
	codec    *Codec
	hb       *heartbeater
	outbound chan outboundFrame
	events   chan Event

	helloInterval time.Duration
}

func newConnection(cfg *config, session *Session, machine *Machine, logger Logger, events chan Event) *connection {
	return &connection{
		cfg:      cfg,
		session:  session,
		machine:  machine,
		logger:   logger,
		codec:    NewCodec(),
		outbound: make(chan outboundFrame, 32), // spec §5: bounded 32, backpressure desired
		events:   events,
	}
}

// connect dials the socket and drives the Hello/Identify-or-Resume
// handshake to completion, leaving the connection in StateConnected.
func (c *connection) connect(ctx context.Context) error {
	if err := c.machine.apply(evBeginConnect); err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	target := c.dialTarget()
	dialer := ws.Dialer{}
	conn, _, _, err := dialer.Dial(dialCtx, target)
	if err != nil {
		return ConnectionFailed("dial failed", err)
	}
	c.conn = conn
	c.logger.Info("connected to gateway")

	hello, err := c.awaitHello(ctx)
	if err != nil {
		conn.Close()
		return err
	}
	c.helloInterval = hello

	if c.session.CanResume() {
		if err := c.resume(ctx); err != nil {
			conn.Close()
			return err
		}
	} else {
		if err := c.identify(ctx); err != nil {
			conn.Close()
			return err
		}
	}
	return nil
}

func (c *connection) dialTarget() string {
	if resumeURL := c.session.ResumeURL(); resumeURL != "" {
		return buildResumeURL(resumeURL)
	}
	if c.cfg.gatewayURL != "" {
		return c.cfg.gatewayURL
	}
	return defaultGatewayURL
}

// buildResumeURL fills in required query params a resume_gateway_url
// might be missing, the same defensive normalization the teacher's
// shard.buildResumeURL applies.
func buildResumeURL(resumeURL string) string {
	parsed, err := url.Parse(resumeURL)
	if err != nil {
		return resumeURL
	}
	q := parsed.Query()
	if q.Get("v") == "" {
		q.Set("v", "10")
	}
	if q.Get("encoding") == "" {
		q.Set("encoding", "json")
	}
	if q.Get("compress") == "" {
		q.Set("compress", "zlib-stream")
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// awaitHello reads exactly one message and requires it to be opcode
// 10; anything else fails the handshake (spec §4.5 step 2).
func (c *connection) awaitHello(ctx context.Context) (time.Duration, error) {
	if err := c.machine.apply(evAwaitingHello); err != nil {
		return 0, err
	}

	type result struct {
		interval time.Duration
		err      error
	}
	done := make(chan result, 1)
	go func() {
		frame, err := c.readFrame()
		if err != nil {
			done <- result{err: err}
			return
		}
		if frame.Op != OpHello {
			done <- result{err: UnexpectedOpcodeError(frame.Op)}
			return
		}
		var hello Hello
		if err := json.Unmarshal(frame.Data, &hello); err != nil {
			done <- result{err: ConnectionFailed("malformed hello", err)}
			return
		}
		done <- result{interval: time.Duration(hello.HeartbeatIntervalMs) * time.Millisecond}
	}()

	select {
	case r := <-done:
		return r.interval, r.err
	case <-time.After(helloTimeout):
		return 0, TimeoutError("hello")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// resume sends Resume and awaits RESUMED or InvalidSession (spec §4.5
// step 3).
func (c *connection) resume(ctx context.Context) error {
	if err := c.machine.apply(evResumeSent); err != nil {
		return err
	}
	seq := c.session.Sequence()
	var s int64
	if seq != nil {
		s = *seq
	}
	if err := c.writeFrame(OpResume, Resume{
		Token:     c.cfg.token,
		SessionID: c.session.SessionID(),
		Seq:       s,
	}); err != nil {
		return WebSocketError(err)
	}

	frame, err := c.awaitWithTimeout(ctx, readyTimeout)
	if err != nil {
		return err
	}
	switch frame.Op {
	case OpDispatch:
		if frame.Name == nil || *frame.Name != "RESUMED" {
			return UnexpectedOpcodeError(frame.Op)
		}
		if err := c.machine.apply(evResumedReceived); err != nil {
			return err
		}
		c.emit(Event{Kind: EventResumed, SessionID: c.session.SessionID(), ResumeURL: c.session.ResumeURL()})
		return nil
	case OpInvalidSession:
		var resumable bool
		json.Unmarshal(frame.Data, &resumable)
		if !resumable {
			c.session.Clear()
		}
		return SessionInvalidated(resumable)
	default:
		return UnexpectedOpcodeError(frame.Op)
	}
}

// identify sends Identify and awaits READY (spec §4.5 step 4).
func (c *connection) identify(ctx context.Context) error {
	if err := c.machine.apply(evIdentifySent); err != nil {
		return err
	}
	if err := c.writeFrame(OpIdentify, Identify{
		Token:          c.cfg.token,
		Properties:     c.cfg.properties,
		Compress:       true,
		LargeThreshold: c.cfg.largeThreshold,
		Intents:        c.cfg.intents,
	}); err != nil {
		return WebSocketError(err)
	}

	frame, err := c.awaitWithTimeout(ctx, readyTimeout)
	if err != nil {
		return err
	}
	if frame.Op != OpDispatch || frame.Name == nil || *frame.Name != "READY" {
		return UnexpectedOpcodeError(frame.Op)
	}

	var ready readyData
	if err := json.Unmarshal(frame.Data, &ready); err != nil {
		return ConnectionFailed("malformed ready", err)
	}
	c.session.SetSession(ready.SessionID, ready.ResumeGatewayURL)
	c.session.SetUserID(ready.User.ID)
	c.session.UpdateSequence(frame.Sequence)
	if err := c.machine.apply(evReadyReceived); err != nil {
		return err
	}

	c.emit(Event{Kind: EventConnected, SessionID: ready.SessionID, ResumeURL: ready.ResumeGatewayURL})
	dispatch, derr := parseDispatch("READY", frame.Data)
	if derr != nil {
		c.logger.Warn("failed to parse READY payload")
	} else {
		c.emit(Event{Kind: EventDispatch, Dispatch: dispatch})
	}
	return nil
}

func (c *connection) awaitWithTimeout(ctx context.Context, timeout time.Duration) (Frame, error) {
	type result struct {
		frame Frame
		err   error
	}
	done := make(chan result, 1)
	go func() {
		f, err := c.readFrame()
		done <- result{frame: f, err: err}
	}()

	select {
	case r := <-done:
		return r.frame, r.err
	case <-time.After(timeout):
		return Frame{}, TimeoutError("ready_or_resumed")
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// run drives the steady-state loop: reading inbound frames, applying
// them, and forwarding outbound commands, until ctx is cancelled or
// an error ends the connection (spec §4.5 "Steady state").
func (c *connection) run(ctx context.Context) error {
	c.hb = newHeartbeater(c.helloInterval, c.machine, c.logger, c.session.Sequence, c.sendHeartbeat, c.onHeartbeatSendFailure)
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go c.hb.run(hbCtx)
	defer c.hb.Stop()

	hbTimeout := make(chan error, 1)
	go c.monitorHeartbeat(hbCtx, hbTimeout)

	inbound := make(chan Frame, 1)
	readErrs := make(chan error, 1)
	go c.readLoop(inbound, readErrs)

	for {
		select {
		case <-ctx.Done():
			c.closeSocket(normalClosure)
			return ctx.Err()

		case err := <-readErrs:
			return err

		case err := <-hbTimeout:
			c.logger.Warn("heartbeat ack overdue past 1.5x interval, closing connection")
			c.closeSocket(CloseUnknownError)
			return err

		case frame := <-inbound:
			if err := c.applyFrame(frame); err != nil {
				return err
			}

		case out := <-c.outbound:
			if err := c.writeFrame(out.op, out.data); err != nil {
				return WebSocketError(err)
			}
		}
	}
}

// heartbeatOverdueCheckInterval bounds how often the steady-state loop
// polls Machine.IsHeartbeatOverdue. It tracks the heartbeat interval so
// a slow heartbeat cadence isn't checked needlessly often and a fast
// one isn't checked too rarely to catch the 1.5x threshold promptly.
func heartbeatOverdueCheckInterval(interval time.Duration) time.Duration {
	quarter := interval / 4
	if quarter < 250*time.Millisecond {
		return 250 * time.Millisecond
	}
	return quarter
}

// monitorHeartbeat polls the overdue boolean C3 exposes and reports a
// timeout exactly once; it never closes the socket itself — that stays
// the steady-state loop's job (spec §4.4: C4 "does not decide to
// reconnect, it merely reports").
func (c *connection) monitorHeartbeat(ctx context.Context, out chan<- error) {
	ticker := time.NewTicker(heartbeatOverdueCheckInterval(c.helloInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.machine.IsHeartbeatOverdue() {
				select {
				case out <- HeartbeatTimeout():
				default:
				}
				return
			}
		}
	}
}

// readLoop continuously reads frames off the socket and pushes them
// onto inbound, mirroring the teacher's readLoop/gatewayReader split
// but decoupled through the Codec abstraction.
func (c *connection) readLoop(inbound chan<- Frame, errs chan<- error) {
	for {
		frame, err := c.readFrame()
		if err != nil {
			errs <- err
			return
		}
		inbound <- frame
	}
}

func (c *connection) applyFrame(frame Frame) error {
	switch frame.Op {
	case OpDispatch:
		c.session.UpdateSequence(frame.Sequence)
		name := ""
		if frame.Name != nil {
			name = *frame.Name
		}
		dispatch, err := parseDispatch(name, frame.Data)
		if err != nil {
			c.logger.Warn(fmt.Sprintf("dropping unparsable dispatch %s", name))
			return nil
		}
		c.emit(Event{Kind: EventDispatch, Dispatch: dispatch})

	case OpHeartbeat:
		c.logger.Debug("server requested immediate heartbeat")

	case OpReconnect:
		return ConnectionClosed(CloseUnknownError, "server requested reconnect")

	case OpInvalidSession:
		var resumable bool
		json.Unmarshal(frame.Data, &resumable)
		if !resumable {
			c.session.Clear()
		}
		return SessionInvalidated(resumable)

	case OpHello:
		// Hello outside the handshake is a no-op (spec §4.5).

	case OpHeartbeatACK:
		if err := c.machine.apply(evHeartbeatAckReceived); err != nil {
			return err
		}
		c.hb.ack()
		latency := int64(0)
		if l := c.machine.LatencyMs(); l != nil {
			latency = *l
		}
		c.emit(Event{Kind: EventHeartbeatAck, LatencyMs: latency})

	default:
		c.logger.Debug(fmt.Sprintf("ignoring opcode %d", frame.Op))
	}
	return nil
}

func (c *connection) sendHeartbeat(seq *int64) error {
	if err := c.machine.apply(evHeartbeatSent); err != nil {
		return err
	}
	// Outbound is bounded (spec §5): a full queue means the socket is
	// backed up and a heartbeat send should slow down with it, not
	// drop — back-pressure here is desired, not a bug.
	c.outbound <- outboundFrame{op: OpHeartbeat, data: heartbeatPayload{Seq: seq}}
	return nil
}

// onHeartbeatSendFailure fires when the heartbeat write itself errors
// (a real transport failure), not when an ack is merely late — that
// case is handled by monitorHeartbeat instead.
func (c *connection) onHeartbeatSendFailure() {
	c.logger.Warn("heartbeat send failed, closing connection")
	c.closeSocket(CloseUnknownError)
}

// Send queues an outbound command. Per spec §3's ConnectionState
// invariant, anything other than Identify/Resume/Heartbeat is
// rejected unless the machine is in StateConnected.
func (c *connection) Send(op int, data any) error {
	if !c.machine.canSendOutbound(op) {
		return illegalTransition{from: c.machine.State(), ev: -1}
	}
	c.outbound <- outboundFrame{op: op, data: data}
	return nil
}

func (c *connection) writeFrame(op int, data any) error {
	payload, err := encodeFrame(op, data)
	if err != nil {
		return err
	}
	return wsutil.WriteClientMessage(c.conn, ws.OpText, payload)
}

// readFrame reads one WebSocket frame and feeds it through the codec,
// returning the first decoded protocol Frame it produces. Binary
// frames may legitimately decode to zero messages (short reads); this
// loops until one is available or an error/close occurs.
func (c *connection) readFrame() (Frame, error) {
	for {
		msg, op, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			return Frame{}, WebSocketError(err)
		}

		switch op {
		case ws.OpClose:
			code, reason := ws.ParseCloseFrameData(msg)
			return Frame{}, ConnectionClosed(int(code), reason)
		case ws.OpPing:
			wsutil.WriteClientMessage(c.conn, ws.OpPong, msg)
			continue
		case ws.OpPong:
			continue
		case ws.OpText:
			msgs, err := c.codec.Feed(FrameText, msg)
			if err != nil {
				return Frame{}, err
			}
			if len(msgs) == 0 {
				continue
			}
			return decodeFrame(msgs[0])
		case ws.OpBinary:
			msgs, err := c.codec.Feed(FrameBinary, msg)
			if err != nil {
				return Frame{}, err
			}
			if len(msgs) == 0 {
				continue
			}
			return decodeFrame(msgs[0])
		default:
			continue
		}
	}
}

func (c *connection) closeSocket(code int) {
	if c.conn == nil {
		return
	}
	payload := ws.NewCloseFrameBody(ws.StatusCode(code), "")
	wsutil.WriteClientMessage(c.conn, ws.OpClose, payload)
	c.conn.Close()
}

func (c *connection) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Event channel is the idiomatic stand-in for the spec's
		// "unbounded" channel (spec §5): Go has no unbounded chan
		// primitive, so a large buffer with drop-oldest-on-full is
		// the closest faithful approximation. Dropping the oldest
		// pending event (rather than this new one) keeps the stream
		// moving forward instead of wedging on a slow subscriber.
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- ev:
		default:
		}
	}
}
