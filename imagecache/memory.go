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
	"image"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCapacity is the default entry count for the memory
// tier (spec §4.7).
const DefaultMemoryCapacity = 50

// MemoryCacheStats is a snapshot of MemoryCache.Stats.
type MemoryCacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// MemoryCache is the in-process LRU of decoded images (C7). The
// hashicorp LRU already implements exactly the promote-on-Get,
// no-promote-on-Peek contract the spec asks for, so there is no
// hand-rolled list/map here.
type MemoryCache struct {
	lru *lru.Cache[ID, image.Image]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache builds a MemoryCache with the given entry capacity.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	c, err := lru.New[ID, image.Image](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, already guarded above.
		panic(err)
	}
	return &MemoryCache{lru: c}
}

// Get returns the cached image and promotes it to most-recently-used.
func (m *MemoryCache) Get(id ID) (image.Image, bool) {
	img, ok := m.lru.Get(id)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return img, ok
}

// Peek returns the cached image without affecting recency — the
// synchronous fast path UI draw loops use (spec §4.9
// check_memory_cache).
func (m *MemoryCache) Peek(id ID) (image.Image, bool) {
	return m.lru.Peek(id)
}

// Put inserts or replaces an entry.
func (m *MemoryCache) Put(id ID, img image.Image) {
	m.lru.Add(id, img)
}

// Evict removes an entry if present.
func (m *MemoryCache) Evict(id ID) {
	m.lru.Remove(id)
}

// Len returns the current entry count.
func (m *MemoryCache) Len() int { return m.lru.Len() }

// Clear removes every entry.
func (m *MemoryCache) Clear() { m.lru.Purge() }

// Stats returns current hit/miss counters and size.
func (m *MemoryCache) Stats() MemoryCacheStats {
	return MemoryCacheStats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Size:   m.lru.Len(),
	}
}
