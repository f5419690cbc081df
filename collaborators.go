// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"time"

	"github.com/decred/dcrd/crypto/rand"
)

// Clock supplies the current time to the manager. Tests inject a fake
// implementation so scenarios can freeze or advance time deterministically;
// production callers use systemClock, the default.
type Clock interface {
	// Now returns the current time as Unix seconds.
	Now() int64
}

// systemClock is the default Clock, backed by the real wall clock.
type systemClock struct{}

// Now implements Clock.
func (systemClock) Now() int64 { return time.Now().Unix() }

// Rand supplies randomness to the manager: an unbiased uniform sampler for
// selection and the stochastic gates, and a cryptographically secure byte
// source for the bucket secret. cryptoRand, the default, is backed by the
// module family's own CSPRNG package rather than math/rand, since the
// bucket secret must be unpredictable to a remote peer.
type Rand interface {
	// Uint32N returns a uniform random value in [0, n).
	Uint32N(n uint32) uint32

	// Read fills b with cryptographically secure random bytes.
	Read(b []byte) (int, error)
}

// cryptoRand is the default Rand, delegating to the package-level CSPRNG.
type cryptoRand struct{}

// Uint32N implements Rand.
func (cryptoRand) Uint32N(n uint32) uint32 { return rand.Uint32N(n) }

// Read implements Rand.
func (cryptoRand) Read(b []byte) (int, error) {
	rand.Read(b)
	return len(b), nil
}

// Reachability orders how good a candidate local address dst is to
// advertise to a peer that connected from src; higher is better. It
// implements the externally supplied total order on routability classes
// referenced by GetLocal.
type Reachability func(src, dst *NetworkAddress) int

// defaultReachability is a minimal reachability estimator used when the
// caller does not supply one: an unroutable destination is always worse
// than a routable one, and among routable destinations, one that shares the
// source's IP version is preferred.
func defaultReachability(src, dst *NetworkAddress) int {
	if !dst.IsRoutable() {
		return 0
	}
	if src != nil && isIPv4(src.IP) == isIPv4(dst.IP) {
		return 2
	}
	return 1
}

// Option configures an AddrManager at construction time.
type Option func(*AddrManager)

// WithClock overrides the manager's time source.
func WithClock(clock Clock) Option {
	return func(m *AddrManager) { m.clock = clock }
}

// WithRand overrides the manager's randomness source.
func WithRand(r Rand) Option {
	return func(m *AddrManager) { m.rand = r }
}

// WithReachability overrides the manager's reachability estimator, used by
// GetLocal to rank self-addresses for a given peer.
func WithReachability(reach Reachability) Option {
	return func(m *AddrManager) { m.reach = reach }
}

// WithSelfAddress sets the address and service bitmask substituted for src
// when Add is called with a nil source, and recorded as the services of
// newly added local addresses. The manager has no network identity of its
// own by default; callers that know their own listening address should set
// it explicitly.
func WithSelfAddress(addr *NetworkAddress, services ServiceFlag) Option {
	return func(m *AddrManager) {
		m.selfAddress = addr
		m.selfServices = services
	}
}

// WithBanDuration overrides how long, in seconds, a ban recorded by Ban
// remains in effect. The default is 24 hours.
func WithBanDuration(seconds int64) Option {
	return func(m *AddrManager) { m.banDuration = seconds }
}

// WithNetworkMagic sets the magic value written to and checked against the
// persisted file's header, distinguishing stores built for different
// networks.
func WithNetworkMagic(magic uint32) Option {
	return func(m *AddrManager) { m.networkMagic = magic }
}
