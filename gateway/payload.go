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

	"github.com/bytedance/sonic"
)

// Gateway opcodes as defined by Discord.
// https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-opcodes
const (
	OpDispatch            = 0
	OpHeartbeat           = 1
	OpIdentify            = 2
	OpPresenceUpdate      = 3
	OpVoiceStateUpdate    = 4
	OpResume              = 6
	OpReconnect           = 7
	OpRequestGuildMembers = 8
	OpInvalidSession      = 9
	OpHello               = 10
	OpHeartbeatACK        = 11
	OpLazyRequest         = 14
)

// Gateway close codes.
// https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-close-event-codes
const (
	CloseUnknownError         = 4000
	CloseUnknownOpcode        = 4001
	CloseDecodeError          = 4002
	CloseNotAuthenticated     = 4003
	CloseAuthenticationFailed = 4004
	CloseAlreadyAuthenticated = 4005
	CloseInvalidSeq           = 4007
	CloseRateLimited          = 4008
	CloseSessionTimedOut      = 4009
	CloseInvalidShard         = 4010
	CloseShardingRequired     = 4011
	CloseInvalidAPIVersion    = 4012
	CloseInvalidIntents       = 4013
	CloseDisallowedIntents    = 4014

	// normalClosure is used when this client ends the connection
	// itself (context cancellation or local shutdown).
	normalClosure = 1000
)

// fatalCloseCodes never allow reconnection; the session is cleared and
// the supervisor stops.
var fatalCloseCodes = map[int]struct{}{
	CloseAuthenticationFailed: {},
	CloseInvalidShard:         {},
	CloseShardingRequired:     {},
	CloseInvalidAPIVersion:    {},
	CloseInvalidIntents:       {},
	CloseDisallowedIntents:    {},
}

// IsFatalCloseCode reports whether code permanently forbids
// reconnection (spec §4.6, §6).
func IsFatalCloseCode(code int) bool {
	_, fatal := fatalCloseCodes[code]
	return fatal
}

// Intents is the Gateway intents bitfield.
type Intents int

const (
	IntentGuilds Intents = 1 << iota
	IntentGuildMembers
	IntentGuildModeration
	IntentGuildEmojisAndStickers
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping
	IntentMessageContent
)

// DefaultIntents matches spec §6: Guilds | GuildMessages |
// GuildMessageTyping | DirectMessages | DirectMessageTyping |
// MessageContent.
const DefaultIntents = IntentGuilds | IntentGuildMessages | IntentGuildMessageTyping |
	IntentDirectMessages | IntentDirectMessageTyping | IntentMessageContent

// Has reports whether all of bits are set in i.
func (i Intents) Has(bits ...Intents) bool { return BitMaskHas(i, bits...) }

// Frame is the raw protocol envelope described in spec §3/§6:
// { "op": int, "d": any?, "s": int?, "t": string? }
type Frame struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Name     *string         `json:"t,omitempty"`
}

func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func encodeFrame(op int, data any) ([]byte, error) {
	payload := struct {
		Op   int `json:"op"`
		Data any `json:"d"`
	}{Op: op, Data: data}
	return sonic.Marshal(payload)
}

// Hello is the opcode-10 payload.
type Hello struct {
	HeartbeatIntervalMs int64 `json:"heartbeat_interval"`
}

// IdentifyProperties is the Identify "properties" sub-object.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// Identify is the opcode-2 payload.
type Identify struct {
	Token          string              `json:"token"`
	Properties     IdentifyProperties  `json:"properties"`
	Compress       bool                `json:"compress"`
	LargeThreshold int                 `json:"large_threshold"`
	Intents        Intents             `json:"intents"`
}

// Resume is the opcode-6 payload.
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// heartbeatPayload is the opcode-1 payload: the last received sequence,
// or null if none yet.
type heartbeatPayload struct {
	Seq *int64
}

func (h heartbeatPayload) MarshalJSON() ([]byte, error) {
	if h.Seq == nil {
		return []byte("null"), nil
	}
	return sonic.Marshal(*h.Seq)
}

// readyData is the subset of the READY dispatch payload this engine
// needs to bootstrap session bookkeeping (spec §4.5 step 4).
type readyData struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
	User             struct {
		ID string `json:"id"`
	} `json:"user"`
}

// lazyRequestChannels is the {"<channel_id>": [[0,99]]} shape used by
// opcode 14. Supported for user-account gateways per spec §4.10's open
// question; bot-account callers never need to send it.
type lazyRequestChannels map[string][][2]int

// LazyRequest is the opcode-14 payload used to subscribe to typing in
// a guild's channels on a user-account gateway.
type LazyRequest struct {
	GuildID    string              `json:"guild_id"`
	Typing     bool                `json:"typing"`
	Activities bool                `json:"activities"`
	Threads    bool                `json:"threads"`
	Channels   lazyRequestChannels `json:"channels"`
}
