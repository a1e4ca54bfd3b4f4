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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_PutGetRoundtrip(t *testing.T) {
	d, err := NewDiskCache(t.TempDir(), 1024*1024)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}

	id := NewID("a")
	if err := d.Put(id, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, ok := d.Get(id)
	if !ok || string(data) != "hello" {
		t.Fatalf("Get = (%q, %v), want (hello, true)", data, ok)
	}
	if d.ItemCount() != 1 {
		t.Fatalf("expected item count 1, got %d", d.ItemCount())
	}
	if d.Size() != 5 {
		t.Fatalf("expected size 5, got %d", d.Size())
	}
}

func TestDiskCache_ScanSeedsCountersOnReopen(t *testing.T) {
	dir := t.TempDir()
	d1, err := NewDiskCache(dir, 1024*1024)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	id := NewID("a")
	if err := d1.Put(id, []byte("hello world")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	d2, err := NewDiskCache(dir, 1024*1024)
	if err != nil {
		t.Fatalf("reopen NewDiskCache: %v", err)
	}
	if d2.ItemCount() != 1 || d2.Size() != 11 {
		t.Fatalf("reopened counters = (%d, %d), want (1, 11)", d2.ItemCount(), d2.Size())
	}
}

func TestDiskCache_EvictOldestFirst(t *testing.T) {
	d, err := NewDiskCache(t.TempDir(), 30)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}

	old, mid, recent := NewID("old"), NewID("mid"), NewID("recent")
	payload := []byte("0123456789") // 10 bytes each, capacity 30

	if err := d.Put(old, payload); err != nil {
		t.Fatal(err)
	}
	touch(t, d, old, -3*time.Hour)
	if err := d.Put(mid, payload); err != nil {
		t.Fatal(err)
	}
	touch(t, d, mid, -2*time.Hour)
	if err := d.Put(recent, payload); err != nil {
		t.Fatal(err)
	}

	// Adding a fourth entry pushes size to 40 > 30, forcing eviction down
	// to <= 27 (10% headroom of 30); oldest (old) must go first.
	if err := d.Put(NewID("newest"), payload); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Get(old); ok {
		t.Fatal("expected oldest entry evicted first")
	}
}

func TestDiskCache_EvictRemovesAndDecrements(t *testing.T) {
	d, err := NewDiskCache(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	id := NewID("a")
	_ = d.Put(id, []byte("hello"))
	d.Evict(id)
	if _, ok := d.Get(id); ok {
		t.Fatal("expected entry gone after Evict")
	}
	if d.ItemCount() != 0 {
		t.Fatalf("expected item count 0, got %d", d.ItemCount())
	}
}

func TestDiskCache_EvictMissingIsNotAnError(t *testing.T) {
	d, err := NewDiskCache(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	d.Evict(NewID("never-existed")) // must not panic
}

func TestDiskCache_Clear(t *testing.T) {
	d, err := NewDiskCache(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	_ = d.Put(NewID("a"), []byte("x"))
	_ = d.Put(NewID("b"), []byte("y"))
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if d.ItemCount() != 0 || d.Size() != 0 {
		t.Fatalf("expected zeroed counters after Clear, got (%d, %d)", d.ItemCount(), d.Size())
	}
}

// touch backdates an entry's mtime to simulate an older access time.
func touch(t *testing.T, d *DiskCache, id ID, offset time.Duration) {
	t.Helper()
	p := filepath.Join(d.dir, id.String()+imgExt)
	when := time.Now().Add(offset)
	if err := os.Chtimes(p, when, when); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}
