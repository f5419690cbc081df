// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import "testing"

func TestBanRoundTrip(t *testing.T) {
	m, clock := newTestManager(1700000000)

	ban := mustAddr("9.9.9.9:1234", 0, 0)
	m.Ban(ban)

	check := mustAddr("9.9.9.9:4321", 0, 0)
	if !m.IsBanned(check) {
		t.Fatalf("IsBanned() = false, want true for the same IP on a different port")
	}

	clock.advance(m.banDuration + 1)
	if m.IsBanned(check) {
		t.Fatalf("IsBanned() = true, want false after the ban has expired")
	}
}

func TestBanFirstWriterWins(t *testing.T) {
	m, clock := newTestManager(1700000000)
	addr := mustAddr("9.9.9.9:1234", 0, 0)

	m.Ban(addr)
	firstBanTime := m.banned[addr.BanKey()].Time

	clock.advance(100)
	m.Ban(addr)
	if got := m.banned[addr.BanKey()].Time; got != firstBanTime {
		t.Errorf("second Ban() call overwrote the first: got %d, want %d", got, firstBanTime)
	}
}

func TestUnban(t *testing.T) {
	m, _ := newTestManager(1700000000)
	addr := mustAddr("9.9.9.9:1234", 0, 0)

	m.Ban(addr)
	m.Unban(addr)
	if m.IsBanned(addr) {
		t.Fatalf("IsBanned() = true after Unban")
	}
}

func TestClearBanned(t *testing.T) {
	m, _ := newTestManager(1700000000)
	m.Ban(mustAddr("1.1.1.1:1", 0, 0))
	m.Ban(mustAddr("2.2.2.2:1", 0, 0))

	m.ClearBanned()
	if m.IsBanned(mustAddr("1.1.1.1:1", 0, 0)) || m.IsBanned(mustAddr("2.2.2.2:1", 0, 0)) {
		t.Fatalf("ClearBanned did not remove every ban")
	}
}
