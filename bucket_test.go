// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"
)

func TestFreshBucketIndexBounds(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	addr := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 0, 0)
	src := NewNetworkAddress(net.ParseIP("5.6.7.8"), 8333, 0, 0)

	for i := 0; i < 256; i++ {
		addr := NewNetworkAddress(net.IPv4(byte(i), byte(i), byte(i), byte(i)), 8333, 0, 0)
		idx := freshBucketIndex(key, addr, src)
		if idx >= freshBucketCount {
			t.Fatalf("freshBucketIndex() = %d, out of range", idx)
		}
	}

	idx := freshBucketIndex(key, addr, src)
	if idx >= freshBucketCount {
		t.Fatalf("freshBucketIndex() = %d, out of range", idx)
	}
}

func TestFreshBucketIndexDeterministic(t *testing.T) {
	var key [32]byte
	copy(key[:], "deterministic-bucket-secret-32b")

	addr := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 0, 0)
	src := NewNetworkAddress(net.ParseIP("5.6.7.8"), 8333, 0, 0)

	a := freshBucketIndex(key, addr, src)
	b := freshBucketIndex(key, addr, src)
	if a != b {
		t.Fatalf("freshBucketIndex is not deterministic for identical inputs")
	}

	var otherKey [32]byte
	copy(otherKey[:], "a-completely-different-secret32")
	c := freshBucketIndex(otherKey, addr, src)
	if a == c {
		t.Fatalf("different bucket secrets should almost never agree")
	}
}

func TestUsedBucketIndexBounds(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	for i := 0; i < 256; i++ {
		addr := NewNetworkAddress(net.IPv4(byte(i), 1, 2, 3), 8333, 0, 0)
		idx := usedBucketIndex(key, addr)
		if idx >= usedBucketCount {
			t.Fatalf("usedBucketIndex() = %d, out of range", idx)
		}
	}
}

func TestUsedBucketIndexDeterministic(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	addr := NewNetworkAddress(net.ParseIP("1.2.3.4"), 8333, 0, 0)
	a := usedBucketIndex(key, addr)
	b := usedBucketIndex(key, addr)
	if a != b {
		t.Fatalf("usedBucketIndex is not deterministic for identical inputs")
	}
}
