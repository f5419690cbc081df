// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

// AddLocal records addr as one of this node's own advertisable addresses,
// with the given initial score. Unroutable addresses and addresses already
// recorded are rejected.
func (m *AddrManager) AddLocal(addr *NetworkAddress, score int32) bool {
	if !addr.IsRoutable() {
		return false
	}
	key := addr.Key()
	if _, exists := m.local[key]; exists {
		return false
	}
	m.local[key] = &localAddress{
		addr: &NetworkAddress{
			IP:       canonicalIP(addr.IP),
			Port:     addr.Port,
			Services: m.selfServices,
			Time:     addr.Time,
		},
		score: score,
	}
	return true
}

// MarkLocal bumps the score of a previously-recorded local address by one,
// used to grow confidence in a self-advertisement once a peer reflects it
// back. It is a no-op if the address was never recorded.
func (m *AddrManager) MarkLocal(addr *NetworkAddress) {
	if record, ok := m.local[addr.Key()]; ok {
		record.score++
	}
}

// HasLocal reports whether addr has been recorded as a local address.
func (m *AddrManager) HasLocal(addr *NetworkAddress) bool {
	_, ok := m.local[addr.Key()]
	return ok
}

// GetLocal returns the best self-address to advertise to a peer that
// connected from src. With a nil src it returns the highest-scored
// self-address; otherwise it picks the self-address with the best
// reachability from src, breaking ties by score. It returns nil if no local
// addresses are recorded.
func (m *AddrManager) GetLocal(src *NetworkAddress) *NetworkAddress {
	if len(m.local) == 0 {
		return nil
	}

	if src == nil {
		var best *localAddress
		for _, record := range m.local {
			if best == nil || record.score > best.score {
				best = record
			}
		}
		best.addr.Time = m.clock.Now()
		return best.addr
	}

	var best *localAddress
	bestReach := 0
	for _, record := range m.local {
		reach := m.reach(src, record.addr)
		if best == nil || reach > bestReach ||
			(reach == bestReach && record.score > best.score) {
			best = record
			bestReach = reach
		}
	}
	best.addr.Time = m.clock.Now()
	return best.addr
}
