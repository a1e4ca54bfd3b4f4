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
	"encoding/json"
	"fmt"
)

// parseDispatch turns a Dispatch (opcode 0) frame into a DispatchEvent.
// A failure to parse a recognized name's payload is non-fatal: it is
// reported back as an error but the caller only logs it and keeps the
// connection alive (spec §4.5: "failures to parse are warned and
// dropped — they must not terminate the connection").
func parseDispatch(name string, data json.RawMessage) (DispatchEvent, error) {
	ev := DispatchEvent{Name: name, Data: data}

	var err error
	switch name {
	case "READY":
		var ready readyData
		if err = json.Unmarshal(data, &ready); err == nil {
			ev.Ready = &ReadyEvent{
				SessionID:        ready.SessionID,
				ResumeGatewayURL: ready.ResumeGatewayURL,
				UserID:           ready.User.ID,
			}
		}
	case "RESUMED":
		ev.Resumed = true
	case "MESSAGE_CREATE":
		ev.MessageCreate, err = decodeInto[MessageEvent](data)
	case "MESSAGE_UPDATE":
		ev.MessageUpdate, err = decodeInto[MessageEvent](data)
	case "MESSAGE_DELETE":
		ev.MessageDelete, err = decodeInto[MessageDeleteEvent](data)
	case "MESSAGE_DELETE_BULK":
		ev.MessageDeleteBulk, err = decodeInto[MessageDeleteBulkEvent](data)
	case "TYPING_START":
		ev.TypingStart, err = decodeInto[TypingStartEvent](data)
	case "PRESENCE_UPDATE":
		ev.PresenceUpdate, err = decodeInto[PresenceUpdateEvent](data)
	case "MESSAGE_REACTION_ADD":
		ev.ReactionAdd, err = decodeInto[MessageReactionEvent](data)
	case "MESSAGE_REACTION_REMOVE":
		ev.ReactionRemove, err = decodeInto[MessageReactionEvent](data)
	case "MESSAGE_REACTION_REMOVE_ALL":
		ev.ReactionRemoveAll, err = decodeInto[MessageReactionRemoveAllEvent](data)
	case "CHANNEL_CREATE":
		ev.ChannelCreate, err = decodeInto[ChannelEvent](data)
	case "CHANNEL_UPDATE":
		ev.ChannelUpdate, err = decodeInto[ChannelEvent](data)
	case "CHANNEL_DELETE":
		ev.ChannelDelete, err = decodeInto[ChannelEvent](data)
	case "GUILD_CREATE":
		ev.GuildCreate, err = decodeInto[GuildEvent](data)
	case "GUILD_DELETE":
		ev.GuildDelete, err = decodeInto[GuildDeleteEvent](data)
	case "USER_UPDATE":
		ev.UserUpdate, err = decodeInto[UserEvent](data)
	default:
		// Unrecognized dispatch: forwarded raw per spec §6, caller may
		// log it at debug level and move on.
	}

	if err != nil {
		return ev, fmt.Errorf("parsing dispatch %s: %w", name, err)
	}
	return ev, nil
}

func decodeInto[T any](data json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
