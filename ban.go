// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

// Ban records addr as banned, effective now and for the manager's
// configured ban duration. A later ban of the same IP does not extend or
// shorten an existing ban: the first ban recorded wins until it expires.
func (m *AddrManager) Ban(addr *NetworkAddress) {
	key := addr.BanKey()
	if _, exists := m.banned[key]; exists {
		return
	}
	m.banned[key] = &NetworkAddress{
		IP:   canonicalIP(addr.IP),
		Time: m.clock.Now(),
	}
}

// Unban removes any ban recorded against addr's IP.
func (m *AddrManager) Unban(addr *NetworkAddress) {
	delete(m.banned, addr.BanKey())
}

// IsBanned reports whether addr's IP is currently banned. An expired ban is
// deleted as a side effect of checking it.
func (m *AddrManager) IsBanned(addr *NetworkAddress) bool {
	key := addr.BanKey()
	record, ok := m.banned[key]
	if !ok {
		return false
	}
	if m.clock.Now() > record.Time+m.banDuration {
		delete(m.banned, key)
		return false
	}
	return true
}

// ClearBanned removes every recorded ban.
func (m *AddrManager) ClearBanned() {
	m.banned = make(map[AddressKey]*NetworkAddress)
}
