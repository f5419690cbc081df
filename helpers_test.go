// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"math/rand"
	"net"
)

// fakeClock is a Clock whose reading tests can freeze and advance directly.
type fakeClock struct {
	now int64
}

// Now implements Clock.
func (c *fakeClock) Now() int64 { return c.now }

// advance moves the fake clock forward by seconds.
func (c *fakeClock) advance(seconds int64) { c.now += seconds }

// seededRand is a Rand backed by a deterministically seeded math/rand
// source, giving tests reproducible selection and stochastic-gate behavior
// without depending on the real CSPRNG.
type seededRand struct {
	r *rand.Rand
}

// newSeededRand returns a seededRand with the given seed.
func newSeededRand(seed int64) *seededRand {
	return &seededRand{r: rand.New(rand.NewSource(seed))}
}

// Uint32N implements Rand.
func (s *seededRand) Uint32N(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32(s.r.Int63n(int64(n)))
}

// Read implements Rand.
func (s *seededRand) Read(b []byte) (int, error) { return s.r.Read(b) }

// alwaysZeroRand always returns 0, forcing every biased coin flip and
// stochastic gate to take its "accept" branch, and fills every Read with
// zero bytes, so the bucket secret it seeds is all zeros. It makes Add's
// gate deterministic in tests that care about the mechanics rather than the
// statistics. It is not suitable for Get, whose bucket draw would keep
// landing on bucket zero.
type alwaysZeroRand struct{}

// Uint32N implements Rand.
func (alwaysZeroRand) Uint32N(uint32) uint32 { return 0 }

// Read implements Rand.
func (alwaysZeroRand) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = 0
	}
	return len(b), nil
}

// mustAddr builds a *NetworkAddress from a literal "ip:port" string and a
// Unix-seconds timestamp, panicking on a malformed literal since it is only
// ever used with constants in tests.
func mustAddr(hostPort string, t int64, services ServiceFlag) *NetworkAddress {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		panic(err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		panic("invalid IP literal: " + host)
	}
	var p uint16
	for _, c := range port {
		p = p*10 + uint16(c-'0')
	}
	return NewNetworkAddress(ip, p, services, t)
}

// newTestManager builds an AddrManager with deterministic collaborators
// suitable for unit tests: a fake clock frozen at now, and a Rand that
// always takes the "accept" branch of any gate.
func newTestManager(now int64) (*AddrManager, *fakeClock) {
	clock := &fakeClock{now: now}
	m := New("", WithClock(clock), WithRand(alwaysZeroRand{}), WithNetworkMagic(0xd9b4bef9))
	return m, clock
}
