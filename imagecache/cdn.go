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
	"strconv"
	"strings"
)

// CDN base hosts Discord serves images from (the teacher's image.go
// names these ImageBaseURL/MediaBaseURL for building URLs; here we
// only need the bare hosts for matching).
const (
	cdnHost   = "cdn.discordapp.com"
	mediaHost = "media.discordapp.net"
)

// DefaultWidth and DefaultHeight are the rewrite targets when the
// caller doesn't ask for a specific size (spec §4.10).
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// rewriteOwnedParams are the query keys the CDN rewrite controls;
// any pre-existing value for these is dropped in favor of the
// rewrite's own value.
var rewriteOwnedParams = map[string]struct{}{
	"format":  {},
	"width":   {},
	"height":  {},
	"size":    {},
	"quality": {},
}

// IsDiscordCDNURL reports whether rawURL points at a known Discord CDN
// host.
func IsDiscordCDNURL(rawURL string) bool {
	return strings.Contains(rawURL, cdnHost) || strings.Contains(rawURL, mediaHost)
}

// RewriteURL appends format=webp and the given width/height to a
// Discord CDN URL, preserving any existing query parameters except
// the ones this rewrite owns. Non-Discord hosts are returned
// unchanged (spec §4.10).
func RewriteURL(rawURL string, width, height int) string {
	if !IsDiscordCDNURL(rawURL) {
		return rawURL
	}

	base, existing, hasQuery := strings.Cut(rawURL, "?")

	params := []string{
		"format=webp",
		"width=" + strconv.Itoa(width),
		"height=" + strconv.Itoa(height),
	}

	if hasQuery {
		for _, kv := range strings.Split(existing, "&") {
			key, _, _ := strings.Cut(kv, "=")
			if _, owned := rewriteOwnedParams[key]; !owned && key != "" {
				params = append(params, kv)
			}
		}
	}

	return base + "?" + strings.Join(params, "&")
}

// RewriteURLDefault rewrites with DefaultWidth/DefaultHeight.
func RewriteURLDefault(rawURL string) string {
	return RewriteURL(rawURL, DefaultWidth, DefaultHeight)
}

// ExtractAttachmentID returns the attachment id segment of a Discord
// attachment URL: .../attachments/<channel_id>/<attachment_id>/<file>.
func ExtractAttachmentID(rawURL string) (string, bool) {
	if !strings.Contains(rawURL, "discordapp.com") && !strings.Contains(rawURL, "discordapp.net") {
		return "", false
	}

	_, after, found := strings.Cut(rawURL, "attachments/")
	if !found {
		return "", false
	}

	parts := strings.Split(after, "/")
	if len(parts) < 2 {
		return "", false
	}

	id, _, _ := strings.Cut(parts[1], "?")
	if id == "" {
		return "", false
	}
	return id, true
}
