// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"strconv"
)

// ServiceFlag identifies the services supported by a network address. It is
// a bitmask populated by the caller; this package neither defines nor
// interprets individual bits.
type ServiceFlag uint64

// AddressKey is the fixed-size, comparable identity of a network address: a
// 16-byte IPv4-mapped or IPv6 address together with its port. It is used
// directly as a Go map key for the global index and every bucket, and is
// also the on-wire representation described by the persisted file format.
type AddressKey struct {
	IP   [16]byte
	Port uint16
}

// NetworkAddress describes an endpoint on the network: an address learned
// from gossip, a seed, or a direct connection.
type NetworkAddress struct {
	// IP is always stored in its 16-byte form; IPv4 addresses are
	// IPv4-in-IPv6 mapped.
	IP net.IP

	// Port is the peer's listening port.
	Port uint16

	// Services is the bitmask of services the address claims to support.
	Services ServiceFlag

	// Time is the last time this address was seen, in Unix seconds.
	Time int64
}

// NewNetworkAddress builds a NetworkAddress from an IP, port, service
// bitmask, and timestamp, canonicalizing the IP to its 16-byte form.
func NewNetworkAddress(ip net.IP, port uint16, services ServiceFlag, timestamp int64) *NetworkAddress {
	return &NetworkAddress{
		IP:       canonicalIP(ip),
		Port:     port,
		Services: services,
		Time:     timestamp,
	}
}

// canonicalIP normalizes an IP to its 16-byte representation, mapping IPv4
// addresses into the IPv4-in-IPv6 space so every address key has a uniform
// width.
func canonicalIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4.To16()
	}
	return ip.To16()
}

// Key returns the fixed-size identity of the address, used to index the
// global address table and every bucket.
func (a *NetworkAddress) Key() AddressKey {
	var key AddressKey
	copy(key.IP[:], canonicalIP(a.IP))
	key.Port = a.Port
	return key
}

// BanKey returns the identity used by the ban table: the address' IP with
// the port zeroed, so a ban applies regardless of which port the peer
// reconnects from.
func (a *NetworkAddress) BanKey() AddressKey {
	var key AddressKey
	copy(key.IP[:], canonicalIP(a.IP))
	return key
}

// Clone returns a deep copy of the address.
func (a *NetworkAddress) Clone() *NetworkAddress {
	clone := *a
	clone.IP = append(net.IP(nil), canonicalIP(a.IP)...)
	return &clone
}

// AddService adds the given service to the set of services the address
// claims to support.
func (a *NetworkAddress) AddService(service ServiceFlag) {
	a.Services |= service
}

// IsRoutable reports whether the address is routable over the public
// internet.
func (a *NetworkAddress) IsRoutable() bool {
	return IsRoutable(a.IP)
}

// String returns a human-readable "host:port" representation of the
// address.
func (a *NetworkAddress) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.FormatUint(uint64(a.Port), 10))
}

// netIP returns the address key's IP as a net.IP.
func (k AddressKey) netIP() net.IP {
	ip := make(net.IP, 16)
	copy(ip, k.IP[:])
	return ip
}
