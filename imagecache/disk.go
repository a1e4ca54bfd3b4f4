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
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDiskCapacity is the default disk-tier byte budget (spec's
// original_source ImageLoaderConfig.disk_cache_size: 200MB).
const DefaultDiskCapacity int64 = 200 * 1024 * 1024

const imgExt = ".img"

// DiskCache is the size-bounded on-disk LRU of raw, un-decoded image
// bytes (C8). Each entry is a single `<id>.img` file under dir; recency
// is tracked via the file's mtime rather than a separate index, since
// the directory itself is the durable state this cache needs to
// survive a restart.
type DiskCache struct {
	dir      string
	capacity int64

	mu        sync.Mutex
	size      atomic.Int64
	itemCount atomic.Int64
}

// NewDiskCache opens (and if necessary creates) dir as the disk tier,
// scanning its existing contents to seed size/item counters.
func NewDiskCache(dir string, capacity int64) (*DiskCache, error) {
	if capacity <= 0 {
		capacity = DefaultDiskCapacity
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &DiskCache{dir: dir, capacity: capacity}
	if err := d.scan(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DiskCache) scan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	var total int64
	var count int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != imgExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		count++
	}
	d.size.Store(total)
	d.itemCount.Store(count)
	return nil
}

func (d *DiskCache) path(id ID) string {
	return filepath.Join(d.dir, id.String()+imgExt)
}

// Get reads the raw bytes for id, promoting it to most-recently-used
// by touching its mtime.
func (d *DiskCache) Get(id ID) ([]byte, bool) {
	p := d.path(id)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return data, true
}

// Put writes data for id, evicting older entries first if the new
// entry would push the cache over capacity.
func (d *DiskCache) Put(id ID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	need := int64(len(data))
	if d.size.Load()+need > d.capacity {
		if err := d.evictLocked(need); err != nil {
			return err
		}
	}

	p := d.path(id)
	existed := false
	if info, err := os.Stat(p); err == nil {
		existed = true
		d.size.Add(-info.Size())
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	d.size.Add(need)
	if !existed {
		d.itemCount.Add(1)
	}
	return nil
}

// evictLocked frees entries, oldest-access-first, until size + need
// leaves at least capacity/10 bytes of headroom below capacity — the
// same target-free-bytes formula as original_source's disk_cache.rs:
// target = current_size - max_size + max_size/10.
func (d *DiskCache) evictLocked(need int64) error {
	target := d.size.Load() + need - d.capacity + d.capacity/10
	if target <= 0 {
		return nil
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}

	type candidate struct {
		path     string
		size     int64
		accessed int64
	}
	var cands []candidate
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != imgExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// mtime doubles as the access-recency signal: Get() touches it
		// via os.Chtimes on every read, and Put() sets it on write.
		cands = append(cands, candidate{
			path:     filepath.Join(d.dir, e.Name()),
			size:     info.Size(),
			accessed: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].accessed < cands[j].accessed })

	var freed int64
	for _, c := range cands {
		if freed >= target {
			break
		}
		if err := os.Remove(c.path); err != nil {
			continue
		}
		freed += c.size
		d.size.Add(-c.size)
		d.itemCount.Add(-1)
	}
	return nil
}

// Evict removes a single entry if present.
func (d *DiskCache) Evict(id ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.path(id)
	info, err := os.Stat(p)
	if err != nil {
		return
	}
	if os.Remove(p) == nil {
		d.size.Add(-info.Size())
		d.itemCount.Add(-1)
	}
}

// Size returns the current total bytes on disk.
func (d *DiskCache) Size() int64 { return d.size.Load() }

// ItemCount returns the current entry count.
func (d *DiskCache) ItemCount() int64 { return d.itemCount.Load() }

// Clear removes every entry in the cache directory.
func (d *DiskCache) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != imgExt {
			continue
		}
		_ = os.Remove(filepath.Join(d.dir, e.Name()))
	}
	d.size.Store(0)
	d.itemCount.Store(0)
	return nil
}
