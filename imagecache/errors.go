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

import "errors"

var (
	// errPoolShutdown is returned by workerPool.Submit after Shutdown.
	errPoolShutdown = errors.New("imagecache: worker pool shut down")

	// ErrFetchFailed wraps a non-2xx HTTP response from the CDN.
	ErrFetchFailed = errors.New("imagecache: image fetch failed")

	// ErrDecodeFailed wraps an image.Decode failure.
	ErrDecodeFailed = errors.New("imagecache: image decode failed")
)
