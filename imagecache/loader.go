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
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Source identifies which tier served a LoadedImage.
type Source int

const (
	SourceMemory Source = iota
	SourceDisk
	SourceNetwork
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceDisk:
		return "disk"
	case SourceNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// LoadedImage is the successful result of a load (spec §3 LoadedImage).
type LoadedImage struct {
	ID      ID
	Decoded image.Image
	Source  Source
}

// Event is published on Loader.Events for every completed or failed
// load_async call (spec §4.9 ImageLoadedEvent{id, result}).
type Event struct {
	ID    ID
	Image *LoadedImage
	Err   error
}

type queueItem struct {
	id  ID
	url string
}

// Loader orchestrates the memory → disk → network pipeline (C9): a
// LIFO work queue, a bounded-concurrency worker pool, and a pending
// set for dedup/cancellation, matching spec §4.9 exactly.
type Loader struct {
	memory     *MemoryCache
	disk       *DiskCache
	httpClient *http.Client
	pool       *workerPool
	logger     Logger

	events chan Event

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []queueItem
	queued  map[ID]struct{}
	pending map[ID]struct{}
	closed  bool
}

// NewLoader builds a Loader with its memory and disk tiers rooted at
// dir (the disk tier's cache directory).
func NewLoader(dir string, opts ...Option) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	disk, err := NewDiskCache(dir, cfg.diskCapacity)
	if err != nil {
		return nil, fmt.Errorf("imagecache: open disk cache: %w", err)
	}

	l := &Loader{
		memory:     NewMemoryCache(cfg.memoryCapacity),
		disk:       disk,
		httpClient: &http.Client{Timeout: cfg.fetchTimeout},
		pool:       newWorkerPool(cfg.maxConcurrent),
		logger:     cfg.logger,
		events:     make(chan Event, cfg.eventBufferSize),
		queued:     make(map[ID]struct{}),
		pending:    make(map[ID]struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l, nil
}

// Events returns the channel every load result is published on.
func (l *Loader) Events() <-chan Event { return l.events }

// LoadAsync enqueues a load for id/url. Duplicate requests (already
// queued or already in flight) are dropped (spec §4.9 step 1). New
// requests are pushed to the front so the most recently requested
// image gets attention first.
func (l *Loader) LoadAsync(id ID, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.queued[id]; ok {
		return
	}
	if _, ok := l.pending[id]; ok {
		return
	}

	l.queue = append([]queueItem{{id: id, url: url}}, l.queue...)
	l.queued[id] = struct{}{}
	l.cond.Signal()
}

// Cancel removes id from the queue and the pending set.
func (l *Loader) Cancel(id ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.queue {
		if it.id == id {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			break
		}
	}
	delete(l.queued, id)
	delete(l.pending, id)
}

// CancelAll drains both the queue and the pending set.
func (l *Loader) CancelAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = nil
	l.queued = make(map[ID]struct{})
	l.pending = make(map[ID]struct{})
}

// CheckMemoryCache peeks the memory tier without promotion — the
// synchronous fast path UI draw loops call; it never touches disk or
// network.
func (l *Loader) CheckMemoryCache(id ID) (image.Image, bool) {
	return l.memory.Peek(id)
}

// Run drains the work queue until ctx is done or Shutdown is called.
// Exactly one task runs per acquired permit; the dispatch loop blocks
// on the worker pool's semaphore, so a burst of LoadAsync calls still
// gets serviced most-recent-first once a permit frees up.
func (l *Loader) Run(ctx context.Context) {
	for {
		l.mu.Lock()
		for !l.closed && len(l.queue) == 0 {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		item := l.queue[0]
		l.queue = l.queue[1:]
		delete(l.queued, item.id)
		l.mu.Unlock()

		if err := l.pool.Submit(ctx, func(ctx context.Context) { l.process(ctx, item) }); err != nil {
			return
		}
	}
}

// Shutdown stops Run and the underlying worker pool.
func (l *Loader) Shutdown() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
	l.pool.Shutdown()
}

func (l *Loader) process(ctx context.Context, item queueItem) {
	l.mu.Lock()
	if _, already := l.pending[item.id]; already {
		l.mu.Unlock()
		return
	}
	l.pending[item.id] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, item.id)
		l.mu.Unlock()
	}()

	if img, ok := l.memory.Get(item.id); ok {
		l.publish(item.id, &LoadedImage{ID: item.id, Decoded: img, Source: SourceMemory}, nil)
		return
	}

	if raw, ok := l.disk.Get(item.id); ok {
		img, err := decodeImage(raw)
		if err != nil {
			l.publish(item.id, nil, err)
			return
		}
		l.memory.Put(item.id, img)
		l.publish(item.id, &LoadedImage{ID: item.id, Decoded: img, Source: SourceDisk}, nil)
		return
	}

	l.fetchFromNetwork(ctx, item)
}

func (l *Loader) fetchFromNetwork(ctx context.Context, item queueItem) {
	url := RewriteURLDefault(item.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		l.publish(item.id, nil, err)
		return
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.publish(item.id, nil, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		l.publish(item.id, nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode))
		return
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		l.publish(item.id, nil, err)
		return
	}

	img, err := decodeImage(raw)
	if err != nil {
		l.publish(item.id, nil, err)
		return
	}

	if img.Bounds().Dx() > fitThreshold {
		img = imaging.Fit(img, fitWidth, fitHeight, imaging.Lanczos)
	}

	l.memory.Put(item.id, img)

	go func() {
		if err := l.disk.Put(item.id, raw); err != nil {
			l.logger.Error(err, "imagecache: disk write failed")
		}
	}()

	l.publish(item.id, &LoadedImage{ID: item.id, Decoded: img, Source: SourceNetwork}, nil)
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, nil
}

func (l *Loader) publish(id ID, img *LoadedImage, err error) {
	ev := Event{ID: id, Image: img, Err: err}
	select {
	case l.events <- ev:
	default:
		select {
		case <-l.events:
		default:
		}
		select {
		case l.events <- ev:
		default:
		}
	}
}
