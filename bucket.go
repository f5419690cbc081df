// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// freshBucketCount is the number of set-like buckets that hold
	// unconfirmed addresses.
	freshBucketCount = 1024

	// usedBucketCount is the number of list-like buckets that hold
	// addresses which have completed a handshake.
	usedBucketCount = 256

	// maxBucketEntries is the maximum number of entries permitted in any
	// single fresh or used bucket.
	maxBucketEntries = 64

	// newBucketsPerAddress is the maximum number of fresh buckets a single
	// address may simultaneously occupy.
	newBucketsPerAddress = 8

	// usedBucketsPerAddress is the modulus of the intermediate stage of the
	// used-bucket hash: addresses sharing a network group reach at most
	// this many of the used buckets. A promoted address lives in exactly
	// one used bucket.
	usedBucketsPerAddress = 8
)

// doubleSHA256 hashes the concatenation of every argument with SHA-256
// twice in sequence, matching the keyed hash construction bucket placement
// is built on.
func doubleSHA256(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	first := h.Sum(nil)
	return sha256.Sum256(first)
}

// u32le interprets the first four bytes of h as a little-endian uint32.
func u32le(h [32]byte) uint32 {
	return binary.LittleEndian.Uint32(h[:4])
}

// le32 encodes v as four little-endian bytes.
func le32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// le16 encodes v as two little-endian bytes.
func le16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

// freshBucketIndex computes the fresh-bucket index an entry with the given
// address and source falls into, keyed by the manager's secret. The outer
// hash depends only on the source's group and the intermediate mod-64
// value, so all addresses reported from one source group land in at most
// 64 of the 1024 buckets.
func freshBucketIndex(key [32]byte, addr, src *NetworkAddress) uint32 {
	addrGroup := group(addr.IP)
	srcGroup := group(src.IP)

	s1Hash := doubleSHA256(key[:], addrGroup[:], srcGroup[:])
	s1 := u32le(s1Hash) % 64

	s2Hash := doubleSHA256(key[:], srcGroup[:], le32(s1))
	return u32le(s2Hash) % freshBucketCount
}

// usedBucketIndex computes the used-bucket index an entry with the given
// address falls into, keyed by the manager's secret. Unlike the fresh side,
// only the address itself parameterizes the hash, so an address reaches at
// most usedBucketsPerAddress of the 256 buckets regardless of who reports
// it.
func usedBucketIndex(key [32]byte, addr *NetworkAddress) uint32 {
	addrGroup := group(addr.IP)
	rawIP := canonicalIP(addr.IP)

	s1Hash := doubleSHA256(key[:], rawIP, le16(addr.Port))
	s1 := u32le(s1Hash) % usedBucketsPerAddress

	s2Hash := doubleSHA256(key[:], addrGroup[:], le32(s1))
	return u32le(s2Hash) % usedBucketCount
}
