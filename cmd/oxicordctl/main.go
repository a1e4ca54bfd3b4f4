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

// Command oxicordctl is a smoke-test harness, not a product: it wires
// gateway and imagecache together the way a real terminal UI
// eventually would, printing dispatch events and image-load results to
// stdout. The two packages are the deliverable; this binary just
// proves they compose.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/linuxmobile/oxicord/gateway"
	"github.com/linuxmobile/oxicord/imagecache"
)

func main() {
	token := os.Getenv("OXICORD_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "oxicordctl: OXICORD_TOKEN must be set")
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	loader, err := imagecache.NewLoader(
		filepath.Join(cacheDir, "oxicordctl", "images"),
		imagecache.WithLoaderLogger(imagecache.NewZerologLogger(log)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "oxicordctl: open image cache:", err)
		os.Exit(1)
	}
	go loader.Run(ctx)
	defer loader.Shutdown()

	go func() {
		for ev := range loader.Events() {
			if ev.Err != nil {
				log.Warn().Err(ev.Err).Str("id", ev.ID.String()).Msg("image load failed")
				continue
			}
			log.Info().Str("id", ev.ID.String()).Str("source", ev.Image.Source.String()).Msg("image loaded")
		}
	}()

	client := gateway.New(
		gateway.WithToken(token),
		gateway.WithIntents(gateway.DefaultIntents),
		gateway.WithZerologLogger(log),
	)

	go func() {
		for ev := range client.Events() {
			switch ev.Kind {
			case gateway.EventConnected:
				log.Info().Str("session_id", ev.SessionID).Msg("connected")
			case gateway.EventResumed:
				log.Info().Msg("resumed")
			case gateway.EventDisconnected:
				log.Warn().Str("reason", ev.Reason).Bool("can_resume", ev.CanResume).Msg("disconnected")
			case gateway.EventReconnecting:
				log.Info().Int("attempt", ev.Attempt).Msg("reconnecting")
			case gateway.EventError:
				log.Error().Err(ev.Err).Bool("recoverable", ev.Recoverable).Msg("gateway error")
			case gateway.EventDispatch:
				handleDispatch(ev.Dispatch)
			}
		}
	}()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("gateway client exited")
		os.Exit(1)
	}
}

func handleDispatch(d gateway.DispatchEvent) {
	switch d.Name {
	case "MESSAGE_CREATE":
		if d.MessageCreate == nil {
			return
		}
		fmt.Printf("[%s] %s: %s\n", d.MessageCreate.ChannelID, d.MessageCreate.Author.Username, d.MessageCreate.Content)
	case "READY":
		if d.Ready != nil {
			fmt.Printf("ready as user %s (session %s)\n", d.Ready.UserID, d.Ready.SessionID)
		}
	}
}
