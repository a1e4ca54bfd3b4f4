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

// Package imagecache implements the three-tier image loading pipeline:
// an in-memory LRU of decoded images, a size-bounded on-disk LRU of raw
// bytes, and a network downloader with deduplication and bounded
// concurrency. CDN URL rewriting lives here too, since it's the step
// between a cache miss and the network fetch.
package imagecache
