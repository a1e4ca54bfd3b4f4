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

package imagecache

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// tiny valid PNG, 1x1 transparent pixel.
const base64PNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAAWgmWQ0AAAAASUVORK5CYII="

func decodePNG(t *testing.T) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(base64PNG)
	if err != nil {
		t.Fatalf("invalid base64 fixture: %v", err)
	}
	return b
}

func waitForEvent(t *testing.T, l *Loader) Event {
	t.Helper()
	select {
	case ev := <-l.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for load event")
		return Event{}
	}
}

func TestLoader_NetworkHitPopulatesCaches(t *testing.T) {
	png := decodePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(png)
	}))
	defer srv.Close()

	l, err := NewLoader(t.TempDir(), WithMaxConcurrentDownloads(1))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Shutdown()

	id := NewID(srv.URL)
	l.LoadAsync(id, srv.URL)

	ev := waitForEvent(t, l)
	if ev.Err != nil {
		t.Fatalf("unexpected error: %v", ev.Err)
	}
	if ev.Image == nil || ev.Image.Source != SourceNetwork {
		t.Fatalf("expected network-sourced image, got %+v", ev.Image)
	}

	if _, ok := l.CheckMemoryCache(id); !ok {
		t.Fatal("expected image promoted to memory cache")
	}
}

func TestLoader_MemoryHitShortCircuits(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Shutdown()

	id := NewID("preloaded")
	l.memory.Put(id, nil)

	l.LoadAsync(id, "https://example.invalid/should-not-be-fetched")
	ev := waitForEvent(t, l)
	if ev.Image == nil || ev.Image.Source != SourceMemory {
		t.Fatalf("expected memory-sourced image, got %+v", ev.Image)
	}
}

func TestLoader_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Shutdown()

	id := NewID(srv.URL)
	l.LoadAsync(id, srv.URL)

	ev := waitForEvent(t, l)
	if ev.Err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestLoader_DuplicateRequestDropsSecond(t *testing.T) {
	png := decodePNG(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(png)
	}))
	defer srv.Close()

	l, err := NewLoader(t.TempDir(), WithMaxConcurrentDownloads(1))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	id := NewID(srv.URL)
	l.LoadAsync(id, srv.URL)
	l.LoadAsync(id, srv.URL) // already queued, must be dropped

	l.mu.Lock()
	qlen := len(l.queue)
	l.mu.Unlock()
	if qlen != 1 {
		t.Fatalf("expected a single queued entry, got %d", qlen)
	}
}

func TestLoader_CancelRemovesFromQueue(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	id := NewID("x")
	l.LoadAsync(id, "https://example.invalid/x")
	l.Cancel(id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) != 0 {
		t.Fatalf("expected empty queue after Cancel, got %d entries", len(l.queue))
	}
	if _, ok := l.queued[id]; ok {
		t.Fatal("expected id removed from queued set")
	}
}

func TestLoader_CancelAllDrainsEverything(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	l.LoadAsync(NewID("a"), "https://example.invalid/a")
	l.LoadAsync(NewID("b"), "https://example.invalid/b")
	l.CancelAll()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) != 0 || len(l.queued) != 0 {
		t.Fatal("expected CancelAll to drain the queue and queued set")
	}
}
