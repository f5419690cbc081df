// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"
)

func TestNetworkAddressKey(t *testing.T) {
	a := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 1, 100)
	b := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 99, 900)
	if a.Key() != b.Key() {
		t.Fatalf("two addresses differing only in services/time should share a key")
	}

	c := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8334, 1, 100)
	if a.Key() == c.Key() {
		t.Fatalf("addresses on different ports must not share a key")
	}
}

func TestNetworkAddressBanKey(t *testing.T) {
	a := NewNetworkAddress(net.ParseIP("9.9.9.9"), 1234, 0, 0)
	b := NewNetworkAddress(net.ParseIP("9.9.9.9"), 4321, 0, 0)
	if a.BanKey() != b.BanKey() {
		t.Fatalf("ban keys must ignore port")
	}
}

func TestNetworkAddressClone(t *testing.T) {
	a := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 1, 100)
	clone := a.Clone()
	clone.Port = 9999
	if a.Port == clone.Port {
		t.Fatalf("mutating the clone must not affect the original")
	}
	if a.Key() == clone.Key() {
		t.Fatalf("clone with a different port must produce a different key")
	}
}

func TestNetworkAddressAddService(t *testing.T) {
	a := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 1, 100)
	a.AddService(2)
	if a.Services != 3 {
		t.Fatalf("Services = %d, want 3", a.Services)
	}
}

func TestNetworkAddressIsRoutable(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"127.0.0.1", false},
		{"2001:470::1", true},
	}
	for _, test := range tests {
		a := NewNetworkAddress(net.ParseIP(test.ip), 8333, 0, 0)
		if got := a.IsRoutable(); got != test.want {
			t.Errorf("IsRoutable(%s) = %v, want %v", test.ip, got, test.want)
		}
	}
}
