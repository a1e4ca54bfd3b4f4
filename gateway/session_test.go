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

import "testing"

func TestSession_CanResumeInvariant(t *testing.T) {
	var s Session
	if s.CanResume() {
		t.Fatal("empty session must not be resumable")
	}

	s.SetSession("sess-1", "wss://resume.example")
	if s.CanResume() {
		t.Fatal("session id alone must not make it resumable")
	}

	s.SetSequence(7)
	if !s.CanResume() {
		t.Fatal("session id + sequence must be resumable")
	}
}

func TestSession_ClearKeepsUserID(t *testing.T) {
	var s Session
	s.SetSession("sess-1", "wss://resume.example")
	s.SetSequence(3)
	s.SetUserID("user-9")

	s.Clear()
	if s.SessionID() != "" || s.ResumeURL() != "" || s.Sequence() != nil {
		t.Fatal("Clear must drop session id, resume url and sequence")
	}
	if s.UserID() != "user-9" {
		t.Fatal("Clear must keep user id")
	}
}

func TestSession_ClearAllDropsEverything(t *testing.T) {
	var s Session
	s.SetSession("sess-1", "wss://resume.example")
	s.SetSequence(3)
	s.SetUserID("user-9")

	s.ClearAll()
	if s.UserID() != "" {
		t.Fatal("ClearAll must drop user id too")
	}
}

func TestSession_UpdateSequenceNilIsNoop(t *testing.T) {
	var s Session
	s.SetSequence(5)
	s.UpdateSequence(nil)
	if got := s.Sequence(); got == nil || *got != 5 {
		t.Fatalf("expected sequence to remain 5, got %v", got)
	}

	next := int64(9)
	s.UpdateSequence(&next)
	if got := s.Sequence(); got == nil || *got != 9 {
		t.Fatalf("expected sequence to update to 9, got %v", got)
	}
}

func TestSession_SnapshotIsIndependentCopy(t *testing.T) {
	var s Session
	s.SetSequence(1)
	snap := s.Snapshot()
	s.SetSequence(2)
	if *snap.Sequence != 1 {
		t.Fatal("snapshot must not be affected by later mutation")
	}
}
