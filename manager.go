// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"bytes"
	"fmt"
)

// defaultBanDuration is how long a ban recorded by Ban remains in effect
// unless overridden with WithBanDuration.
const defaultBanDuration = 24 * 60 * 60

// serializationVersion is the version written to and required of the
// persisted file's header.
const serializationVersion = 0

// AddrManager stores and scores the addresses of known peers. Unlike most
// of its siblings in this module family, it is not internally
// concurrency-safe: it is a single-owner, single-threaded object, and a
// caller that shares one across goroutines must hold an exclusive lock
// spanning each call.
type AddrManager struct {
	filePath string

	key [32]byte

	index map[AddressKey]*AddressEntry
	fresh [freshBucketCount]map[AddressKey]*AddressEntry
	used  [usedBucketCount]*usedBucket

	totalFresh int
	totalUsed  int

	banned map[AddressKey]*NetworkAddress
	local  map[AddressKey]*localAddress

	selfAddress  *NetworkAddress
	selfServices ServiceFlag
	banDuration  int64
	networkMagic uint32

	dirty bool

	clock Clock
	rand  Rand
	reach Reachability
}

// localAddress is a self-advertised address the manager may offer to peers
// that ask what address to use to reach us.
type localAddress struct {
	addr  *NetworkAddress
	score int32
}

// New creates an address manager that persists to filePath. filePath may be
// empty, in which case Open and Flush are no-ops and the manager is purely
// in-memory.
func New(filePath string, opts ...Option) *AddrManager {
	m := &AddrManager{
		filePath:    filePath,
		index:       make(map[AddressKey]*AddressEntry),
		banned:      make(map[AddressKey]*NetworkAddress),
		local:       make(map[AddressKey]*localAddress),
		selfAddress: &NetworkAddress{IP: canonicalIP(zeroIP())},
		banDuration: defaultBanDuration,
		clock:       systemClock{},
		rand:        cryptoRand{},
	}
	m.reach = defaultReachability
	for i := range m.fresh {
		m.fresh[i] = make(map[AddressKey]*AddressEntry)
	}
	for _, opt := range opts {
		opt(m)
	}
	if _, err := m.rand.Read(m.key[:]); err != nil {
		panic(fmt.Sprintf("addrmgr: failed to seed bucket secret: %v", err))
	}
	return m
}

// zeroIP returns the unspecified IPv4 address, used as the default self
// address when the caller does not supply one.
func zeroIP() []byte {
	return []byte{0, 0, 0, 0}
}

// Total returns the number of addresses currently known, fresh and used
// combined.
func (m *AddrManager) Total() int {
	return m.totalFresh + m.totalUsed
}

// IsFull reports whether the fresh side has reached its maximum capacity.
func (m *AddrManager) IsFull() bool {
	return m.totalFresh >= freshBucketCount*maxBucketEntries
}

// Reset discards every known address and used/fresh bucket, and generates a
// new bucket secret. The ban table and local address table are untouched:
// neither is part of the persisted format Reset guards against corrupting.
func (m *AddrManager) Reset() {
	m.index = make(map[AddressKey]*AddressEntry)
	for i := range m.fresh {
		m.fresh[i] = make(map[AddressKey]*AddressEntry)
	}
	for i := range m.used {
		m.used[i] = nil
	}
	m.totalFresh = 0
	m.totalUsed = 0
	if _, err := m.rand.Read(m.key[:]); err != nil {
		panic(fmt.Sprintf("addrmgr: failed to reseed bucket secret: %v", err))
	}
	m.dirty = true
}

// ForEach calls fn once for every known address, fresh or used, in
// unspecified order. Iteration stops early if fn returns false.
func (m *AddrManager) ForEach(fn func(e *AddressEntry) bool) {
	for _, e := range m.index {
		if !fn(e) {
			return
		}
	}
}

// Add inserts a newly-learned address, or refreshes an existing one's
// metadata and, with a stochastic chance that shrinks as an address
// accumulates references, gives it another fresh-bucket slot. addr.Port
// must be non-zero; a zero port is a programmer error in the caller and
// this method panics rather than silently ignoring it. src is the address
// of the peer that reported addr; a nil src stands for locally-sourced
// addresses and is replaced with the manager's own self address.
//
// Add returns whether it changed the store's structure (as opposed to only
// refreshing an existing entry's timestamp).
func (m *AddrManager) Add(addr, src *NetworkAddress) bool {
	assertf(addr.Port != 0, "addrmgr: Add called with a zero port")

	now := m.clock.Now()
	srcWasNil := src == nil
	if srcWasNil {
		src = m.selfAddress
	}

	key := addr.Key()
	if entry, ok := m.index[key]; ok {
		return m.addExisting(entry, addr, src, srcWasNil, now)
	}
	return m.addNew(addr, src, key, now)
}

// addExisting implements the merge/refresh branch of Add.
func (m *AddrManager) addExisting(entry *AddressEntry, addr, src *NetworkAddress, srcWasNil bool, now int64) bool {
	entry.Addr.Services |= addr.Services

	interval := int64(86400)
	if now-addr.Time < 86400 {
		interval = 3600
	}
	penalty := int64(7200)
	if srcWasNil {
		penalty = 0
	}
	if entry.Addr.Time < addr.Time-interval-penalty {
		entry.Addr.Time = addr.Time
		m.dirty = true
	}

	if addr.Time <= entry.Addr.Time {
		return false
	}
	if entry.Used {
		return false
	}
	if entry.RefCount >= newBucketsPerAddress {
		return false
	}

	// Stochastic gate: proceed with probability 1/2^refCount.
	if m.rand.Uint32N(uint32(1)<<uint(entry.RefCount)) != 0 {
		return false
	}

	// Bucket placement is keyed on the entry's own stored addr/src, not the
	// addr/src of this particular Add call: the reporting source recorded
	// against an entry never changes after it is first added, so a caller
	// cannot walk an address through arbitrary buckets by repeatedly
	// reporting it from different sources.
	bucket := freshBucketIndex(m.key, entry.Addr, entry.Src)
	if _, exists := m.fresh[bucket][entry.Addr.Key()]; exists {
		return false
	}
	if len(m.fresh[bucket]) >= maxBucketEntries {
		m.evictFresh(bucket, now)
	}
	m.fresh[bucket][entry.Addr.Key()] = entry
	entry.RefCount++
	m.dirty = true
	return true
}

// addNew implements the insert branch of Add.
func (m *AddrManager) addNew(addr, src *NetworkAddress, key AddressKey, now int64) bool {
	entryAddr := addr.Clone()
	if entryAddr.Time <= 100000000 || entryAddr.Time > now+600 {
		entryAddr.Time = now - 5*86400
	}
	entry := newAddressEntry(entryAddr, src.Clone())
	m.index[key] = entry
	m.totalFresh++

	bucket := freshBucketIndex(m.key, entryAddr, entry.Src)
	if _, exists := m.fresh[bucket][key]; exists {
		return false
	}
	if len(m.fresh[bucket]) >= maxBucketEntries {
		m.evictFresh(bucket, now)
	}
	m.fresh[bucket][key] = entry
	entry.RefCount = 1
	m.dirty = true
	log.Tracef("added new address %v for a total of %d addresses", key, m.totalFresh+m.totalUsed)
	return true
}

// evictFresh makes room in fresh bucket b. A single pass removes every
// stale entry found; if the pass finds none, it falls back to evicting the
// single non-stale entry with the smallest addr.Time instead, so exactly
// one address is displaced by the call that triggered it when there was
// nothing worth cleaning up outright.
func (m *AddrManager) evictFresh(b uint32, now int64) {
	bucket := m.fresh[b]
	staleEvicted := false
	var oldest *AddressEntry
	for key, e := range bucket {
		if e.isStale(now) {
			log.Tracef("expiring stale address %v from fresh bucket %d", key, b)
			delete(bucket, key)
			m.dereference(e)
			staleEvicted = true
			continue
		}
		if oldest == nil || isOlder(e, oldest) {
			oldest = e
		}
	}
	if !staleEvicted && oldest != nil {
		log.Tracef("expiring oldest address %v from full fresh bucket %d", oldest.Addr.Key(), b)
		delete(bucket, oldest.Addr.Key())
		m.dereference(oldest)
	}
}

// isOlder reports whether a is the preferred eviction candidate ahead of b:
// a strictly smaller addr.Time, or an equal addr.Time broken by comparing
// address keys byte-for-byte. The tie-break exists so the "first
// encountered" choice spec §9 calls for does not depend on Go's randomized
// map iteration order, which would otherwise make the choice between two
// equal-timestamp entries vary from one call to the next.
func isOlder(a, b *AddressEntry) bool {
	if a.Addr.Time != b.Addr.Time {
		return a.Addr.Time < b.Addr.Time
	}
	ak, bk := a.Addr.Key(), b.Addr.Key()
	return bytes.Compare(ak.IP[:], bk.IP[:]) < 0 ||
		(bytes.Equal(ak.IP[:], bk.IP[:]) && ak.Port < bk.Port)
}

// dereference drops one fresh reference from e, destroying it once its
// reference count reaches zero.
func (m *AddrManager) dereference(e *AddressEntry) {
	e.RefCount--
	assertf(e.RefCount >= 0 && e.RefCount <= newBucketsPerAddress,
		"addrmgr: ref count %d outside [0,%d]", e.RefCount, newBucketsPerAddress)
	if e.RefCount == 0 {
		delete(m.index, e.Addr.Key())
		m.totalFresh--
	}
}

// MarkAttempt records a failed or in-flight connection attempt against a
// known address. It is a no-op if the address is unknown.
func (m *AddrManager) MarkAttempt(addr *NetworkAddress) {
	entry, ok := m.index[addr.Key()]
	if !ok {
		return
	}
	entry.Attempts++
	entry.LastAttempt = m.clock.Now()
	m.dirty = true
}

// MarkSuccess bumps a known address' recency without promoting it,
// following a connection that succeeded but did not complete a full
// handshake. It is a no-op if the address is unknown.
func (m *AddrManager) MarkSuccess(addr *NetworkAddress) {
	entry, ok := m.index[addr.Key()]
	if !ok {
		return
	}
	now := m.clock.Now()
	if now-entry.Addr.Time > 20*60 {
		entry.Addr.Time = now
		m.dirty = true
	}
}

// MarkAck promotes a known address to a used bucket following a completed
// handshake. It is a no-op if the address is unknown, and does nothing
// beyond refreshing metadata if the address is already used.
func (m *AddrManager) MarkAck(addr *NetworkAddress, services ServiceFlag) {
	entry, ok := m.index[addr.Key()]
	if !ok {
		return
	}

	now := m.clock.Now()
	entry.Addr.Services |= services
	entry.LastSuccess = now
	entry.LastAttempt = now
	entry.Attempts = 0
	m.dirty = true

	if entry.Used {
		return
	}

	var old uint32
	foundOld := false
	for b := uint32(0); b < freshBucketCount; b++ {
		if _, exists := m.fresh[b][entry.Addr.Key()]; exists {
			delete(m.fresh[b], entry.Addr.Key())
			entry.RefCount--
			old = b
			foundOld = true
		}
	}
	assertf(foundOld && entry.RefCount == 0, "addrmgr: mark_ack on an entry absent from every fresh bucket")
	m.totalFresh--

	target := usedBucketIndex(m.key, entry.Addr)
	bucket := m.used[target]
	if bucket == nil {
		bucket = &usedBucket{}
		m.used[target] = bucket
	}

	if bucket.length < maxBucketEntries {
		entry.Used = true
		entry.usedIdx = int(target)
		bucket.pushBack(entry)
		m.totalUsed++
		log.Tracef("promoted address %v to used bucket %d", entry.Addr.Key(), target)
		return
	}

	victim := bucket.oldest()
	replacement := freshBucketIndex(m.key, victim.Addr, victim.Src)
	if len(m.fresh[replacement]) >= maxBucketEntries {
		replacement = old
	}

	log.Tracef("used bucket %d is full, replacing %v with %v", target, victim.Addr.Key(), entry.Addr.Key())
	bucket.replace(victim, entry)
	entry.Used = true
	entry.usedIdx = int(target)

	victim.Used = false
	victim.RefCount = 1
	victim.usedIdx = -1
	m.fresh[replacement][victim.Addr.Key()] = victim
	m.totalFresh++
}

// Remove deletes a known address entirely, from whichever bucket it
// currently lives in and from the global index. It reports whether the
// address was known.
func (m *AddrManager) Remove(addr *NetworkAddress) bool {
	key := addr.Key()
	entry, ok := m.index[key]
	if !ok {
		return false
	}

	if entry.Used {
		bucket := m.used[entry.usedIdx]
		assertf(bucket != nil, "addrmgr: used entry references a missing bucket")
		bucket.remove(entry)
		m.totalUsed--
	} else {
		removedFrom := 0
		for b := range m.fresh {
			if _, exists := m.fresh[b][key]; exists {
				delete(m.fresh[b], key)
				entry.RefCount--
				removedFrom++
			}
		}
		assertf(entry.RefCount == 0, "addrmgr: remove left dangling fresh references")
		assertf(removedFrom > 0, "addrmgr: fresh entry unreachable from every fresh bucket")
		m.totalFresh--
	}

	delete(m.index, key)
	m.dirty = true
	log.Tracef("removed address %v", key)
	return true
}

// Get draws a candidate address for the dialer to attempt, biased toward
// addresses with a high chance score. It returns nil only when the store is
// completely empty.
func (m *AddrManager) Get() *AddressEntry {
	if m.totalFresh == 0 && m.totalUsed == 0 {
		return nil
	}

	now := m.clock.Now()
	useUsed := m.chooseSide()

	factor := 1.0
	for {
		var candidate *AddressEntry
		if useUsed {
			candidate = m.pickFromUsed()
		} else {
			candidate = m.pickFromFresh()
		}

		r := m.rand.Uint32N(1 << 30)
		if float64(r) < factor*candidate.chance(now)*float64(int64(1)<<30) {
			if useUsed {
				log.Tracef("selected %v from used bucket", candidate.Addr.Key())
			} else {
				log.Tracef("selected %v from fresh bucket", candidate.Addr.Key())
			}
			return candidate
		}
		factor *= 1.2
	}
}

// chooseSide decides whether Get draws from the used side or the fresh
// side: whichever side is non-empty if only one is, otherwise a fair coin
// with used winning on 0.
func (m *AddrManager) chooseSide() bool {
	switch {
	case m.totalFresh == 0:
		return true
	case m.totalUsed == 0:
		return false
	default:
		return m.rand.Uint32N(2) == 0
	}
}

// pickFromFresh returns a uniformly random entry from a uniformly random
// fresh bucket, redrawing the bucket index on every empty draw rather than
// scanning forward from it: a scan biases selection toward the bucket
// immediately following a run of empty buckets, since every empty bucket in
// the run funnels to the same target. Callers only reach this when
// totalFresh is known to be positive, so a candidate always exists.
func (m *AddrManager) pickFromFresh() *AddressEntry {
	for {
		bucket := m.fresh[m.rand.Uint32N(freshBucketCount)]
		if len(bucket) == 0 {
			continue
		}
		n := m.rand.Uint32N(uint32(len(bucket)))
		var j uint32
		for _, e := range bucket {
			if j == n {
				return e
			}
			j++
		}
	}
}

// pickFromUsed returns a uniformly random entry from a uniformly random used
// bucket, redrawing on every empty draw on the same basis as pickFromFresh.
func (m *AddrManager) pickFromUsed() *AddressEntry {
	for {
		bucket := m.used[m.rand.Uint32N(usedBucketCount)]
		if bucket == nil || bucket.length == 0 {
			continue
		}
		n := m.rand.Uint32N(uint32(bucket.length))
		var j uint32
		for e := bucket.head; e != nil; e = e.next {
			if j == n {
				return e
			}
			j++
		}
	}
}
