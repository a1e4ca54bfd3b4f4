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
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"
	"sync"
)

// FrameKind distinguishes a WebSocket text frame (UTF-8 JSON,
// passed through as-is) from a binary frame (zlib-stream compressed
// JSON, fed through the persistent inflater).
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// syncFlushMarker is the 4-byte suffix Discord appends to the
// compressed stream at every message boundary (a zlib Z_SYNC_FLUSH).
// The codec below does not need to special-case this marker — a
// persistent zlib.Reader fed through json.Decoder only completes a
// Decode() once a full JSON value is available, which happens to
// align with these flush points — but it's kept here since spec §6
// names it explicitly and callers may want to sanity-check framing.
var syncFlushMarker = []byte{0x00, 0x00, 0xff, 0xff}

// hasSyncFlushMarker reports whether frame ends on a zlib sync-flush
// boundary.
func hasSyncFlushMarker(frame []byte) bool {
	return len(frame) >= 4 && bytes.Equal(frame[len(frame)-4:], syncFlushMarker)
}

// pendingReader is a blocking io.Reader bridging Codec.Feed calls (the
// producer) to the background inflate/decode goroutine (the
// consumer). Unlike a bytes.Buffer read directly, it never returns
// io.EOF when starved for input — it parks the consumer goroutine on
// a condition variable instead, which is what lets a single
// compress/zlib.Reader stay alive and mid-stream across many
// WebSocket frames instead of erroring at every sync-flush boundary.
type pendingReader struct {
	mu    sync.Mutex
	cond  *sync.Cond
	buf   bytes.Buffer
	idle  bool // true while the consumer is parked with an empty buf
	closed bool
}

func newPendingReader() *pendingReader {
	pr := &pendingReader{idle: true}
	pr.cond = sync.NewCond(&pr.mu)
	return pr
}

func (r *pendingReader) push(b []byte) {
	r.mu.Lock()
	r.buf.Write(b)
	r.idle = false
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *pendingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	for r.buf.Len() == 0 && !r.closed {
		r.idle = true
		r.cond.Broadcast()
		r.cond.Wait()
	}
	if r.buf.Len() == 0 && r.closed {
		r.mu.Unlock()
		return 0, io.EOF
	}
	n, _ := r.buf.Read(p)
	r.mu.Unlock()
	return n, nil
}

func (r *pendingReader) waitIdle() {
	r.mu.Lock()
	for !r.idle && !r.closed {
		r.cond.Wait()
	}
	r.mu.Unlock()
}

func (r *pendingReader) close() {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Codec streams binary zlib-stream frames into complete JSON messages
// (spec §4.1 / C1). A single inflater is kept alive for the lifetime
// of the connection; call Reset on reconnect.
type Codec struct {
	mu      sync.Mutex
	pending []json.RawMessage
	workErr error

	src  *pendingReader
	zr   io.ReadCloser
	stop chan struct{}
	done chan struct{}
}

// NewCodec returns a ready Codec. The inflater itself is created lazily
// on the first binary frame, since zlib.NewReader needs to read the
// two-byte zlib header before it can succeed.
func NewCodec() *Codec {
	return &Codec{}
}

// Feed consumes one WebSocket frame and returns any complete JSON
// messages it produced, in arrival order. Text frames pass through
// untouched. Binary frames are appended to the running inflate
// buffer; short or incomplete frames legitimately return zero
// messages. A CompressionError is returned (and cached) if the
// inflater fails.
func (c *Codec) Feed(kind FrameKind, data []byte) ([]json.RawMessage, error) {
	if kind == FrameText {
		return []json.RawMessage{json.RawMessage(data)}, nil
	}

	c.mu.Lock()
	if c.workErr != nil {
		err := c.workErr
		c.mu.Unlock()
		return nil, err
	}
	if c.src == nil {
		if err := c.start(); err != nil {
			c.workErr = err
			c.mu.Unlock()
			return nil, err
		}
	}
	c.mu.Unlock()

	c.src.push(data)
	c.src.waitIdle()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workErr != nil {
		return nil, c.workErr
	}
	msgs := c.pending
	c.pending = nil
	return msgs, nil
}

// start spawns the background decode goroutine on the first binary
// frame. The zlib reader itself is created inside that goroutine,
// never under c.mu — zlib.NewReader must read the 2-byte header from
// c.src, which blocks until the caller's first push arrives, and
// blocking while holding c.mu here would deadlock against Feed.
func (c *Codec) start() error {
	src := newPendingReader()
	c.src = src
	c.done = make(chan struct{})
	go c.decodeLoop(src)
	return nil
}

// decodeLoop takes src as a parameter (rather than reading c.src)
// so a concurrent Reset reassigning c.src can never redirect an
// already-running goroutine onto the wrong pendingReader.
func (c *Codec) decodeLoop(src *pendingReader) {
	defer close(c.done)

	zr, err := zlib.NewReader(src)
	if err != nil {
		c.mu.Lock()
		if c.src == src {
			c.workErr = CompressionError(err)
		}
		c.mu.Unlock()
		src.close()
		return
	}
	c.zr = zr

	dec := json.NewDecoder(zr)
	for {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return
			}
			c.mu.Lock()
			if c.src == src {
				c.workErr = CompressionError(err)
			}
			c.mu.Unlock()
			src.close()
			return
		}
		c.mu.Lock()
		if c.src == src {
			c.pending = append(c.pending, msg)
		}
		c.mu.Unlock()
	}
}

// Reset discards the current inflate state. Call this on reconnect;
// the teacher never reuses a compression context across a fresh
// Identify/Resume handshake, and neither does Discord's protocol.
func (c *Codec) Reset() {
	c.mu.Lock()
	src := c.src
	zr := c.zr
	c.src = nil
	c.zr = nil
	c.pending = nil
	c.workErr = nil
	c.mu.Unlock()

	if src != nil {
		src.close()
	}
	if zr != nil {
		zr.Close()
	}
}
