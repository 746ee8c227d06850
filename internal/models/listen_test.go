// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package models

import "testing"

func TestDeterministicIDStable(t *testing.T) {
	a := DeterministicID("Karma Police", "Radiohead", 1700000000)
	b := DeterministicID("Karma Police", "Radiohead", 1700000000)
	if a != b {
		t.Fatalf("same identity produced different IDs: %s vs %s", a, b)
	}

	c := DeterministicID("Karma Police", "Radiohead", 1700000001)
	if a == c {
		t.Fatal("different timestamps produced the same ID")
	}
}

func TestDeterministicIDVersionBits(t *testing.T) {
	id := DeterministicID("No Surprises", "Radiohead", 1700000000)
	if v := id.Version(); v != 5 {
		t.Errorf("version = %d, want 5", v)
	}
	if id[8]&0xc0 != 0x80 {
		t.Errorf("variant bits = %08b, want 10xxxxxx", id[8])
	}
}

func TestSetInfoDropsEmptyValues(t *testing.T) {
	l := &Listen{}
	l.SetInfo(InfoMusicService, "")
	l.SetInfo(InfoOriginURL, nil)
	if l.AdditionalInfo != nil {
		t.Fatalf("empty values should not allocate the map, got %v", l.AdditionalInfo)
	}

	l.SetInfo(InfoMusicService, "navidrome")
	if got := l.InfoString(InfoMusicService); got != "navidrome" {
		t.Errorf("InfoString = %q, want %q", got, "navidrome")
	}
}

func TestListenedAtTimeIsUTC(t *testing.T) {
	l := &Listen{ListenedAt: 1756512000}
	got := l.ListenedAtTime()
	if got.Location() != nil && got.Location().String() != "UTC" {
		t.Errorf("location = %s, want UTC", got.Location())
	}
	if got.Unix() != 1756512000 {
		t.Errorf("unix = %d, want 1756512000", got.Unix())
	}
}
