// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import "math"

// Policy constants governing staleness, selection weighting, and the
// stochastic gates described alongside the store operations that use them.
const (
	// staleHorizonDays is how long an address may go unseen before it is a
	// stale-eviction candidate regardless of attempt history.
	staleHorizonDays = 30

	// neverSucceededMinAttempts is the number of consecutive failed
	// attempts, with no success ever recorded, that makes an entry stale.
	neverSucceededMinAttempts = 3

	// staleSinceSuccessDays is how long since the last success, combined
	// with maxFailuresInWindow attempts, that makes an entry stale.
	staleSinceSuccessDays = 7

	// maxFailuresInWindow is the attempt count paired with
	// staleSinceSuccessDays above.
	maxFailuresInWindow = 10

	// recentlyTouchedWindow exempts an entry attempted within this many
	// seconds from staleness, regardless of any other criterion.
	recentlyTouchedWindow = 60

	// recentAttemptChanceWindow is the window within which a very recent
	// attempt sharply reduces an entry's selection chance.
	recentAttemptChanceWindow = 600

	// maxChanceAttempts caps the attempt count used by the chance
	// calculation, so additional failures beyond this stop compounding.
	maxChanceAttempts = 8

	// chanceDecayBase is the per-attempt multiplicative penalty applied by
	// chance.
	chanceDecayBase = 0.66

	// recentAttemptChancePenalty is the multiplicative penalty applied by
	// chance when an attempt happened within recentAttemptChanceWindow.
	recentAttemptChancePenalty = 0.01
)

// AddressEntry is the unit of storage tracked by the address manager: a
// peer address, who reported it, and the attempt/success history used to
// score and evict it.
//
// prev and next link the entry into its used bucket's list when Used is
// true; they are unused (and must be nil) while the entry lives only in
// fresh buckets.
type AddressEntry struct {
	Addr *NetworkAddress
	Src  *NetworkAddress

	Attempts    int32
	LastAttempt int64
	LastSuccess int64

	Used     bool
	RefCount int

	// usedIdx is the index of the used bucket this entry currently lives
	// in, valid only while Used is true. Recording it directly on the
	// entry avoids having to walk the list to its head and scan every
	// used bucket for a matching head pointer to find it, an alternative
	// this package takes over the naive head-walk.
	usedIdx int

	prev, next *AddressEntry
}

// newAddressEntry creates a fresh, unreferenced entry for addr reported by
// src.
func newAddressEntry(addr, src *NetworkAddress) *AddressEntry {
	return &AddressEntry{Addr: addr, Src: src}
}

// chance returns the entry's selection weight at the given time, in [0,1].
// It decays geometrically with consecutive failed attempts and is sharply
// reduced immediately after an attempt, so recently-tried addresses are not
// retried in a tight loop.
func (e *AddressEntry) chance(now int64) float64 {
	attempts := e.Attempts
	if attempts > maxChanceAttempts {
		attempts = maxChanceAttempts
	}

	c := 1.0
	if now-e.LastAttempt < recentAttemptChanceWindow {
		c *= recentAttemptChancePenalty
	}
	c *= math.Pow(chanceDecayBase, float64(attempts))
	return c
}

// isStale reports whether the entry is a preferred eviction victim: too old,
// claiming a future timestamp, or failed too persistently. An entry
// attempted within the last minute is never considered stale, regardless of
// any other criterion.
func (e *AddressEntry) isStale(now int64) bool {
	if e.LastAttempt > now-recentlyTouchedWindow && e.LastAttempt <= now {
		return false
	}

	switch {
	case e.Addr.Time > now+600:
		return true
	case e.Addr.Time == 0:
		return true
	case now-e.Addr.Time > staleHorizonDays*86400:
		return true
	case e.LastSuccess == 0 && e.Attempts >= neverSucceededMinAttempts:
		return true
	case now-e.LastSuccess > staleSinceSuccessDays*86400 && e.Attempts >= maxFailuresInWindow:
		return true
	default:
		return false
	}
}

// usedBucket is the doubly-linked list backing a single used bucket. The
// prev/next pointers on each entry let the store unlink an entry in O(1)
// once its bucket is known, and let eviction replace an entry in place
// without disturbing the surrounding list order.
type usedBucket struct {
	head, tail *AddressEntry
	length     int
}

// pushBack appends e to the end of the bucket's list.
func (b *usedBucket) pushBack(e *AddressEntry) {
	e.prev, e.next = nil, nil
	if b.tail == nil {
		b.head, b.tail = e, e
	} else {
		b.tail.next = e
		e.prev = b.tail
		b.tail = e
	}
	b.length++
}

// remove unlinks e from the bucket's list. e must currently belong to this
// bucket.
func (b *usedBucket) remove(e *AddressEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		b.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		b.tail = e.prev
	}
	e.prev, e.next = nil, nil
	b.length--
}

// replace substitutes newEntry for oldEntry at oldEntry's current position,
// preserving list order.
func (b *usedBucket) replace(oldEntry, newEntry *AddressEntry) {
	newEntry.prev = oldEntry.prev
	newEntry.next = oldEntry.next
	if oldEntry.prev != nil {
		oldEntry.prev.next = newEntry
	} else {
		b.head = newEntry
	}
	if oldEntry.next != nil {
		oldEntry.next.prev = newEntry
	} else {
		b.tail = newEntry
	}
	oldEntry.prev, oldEntry.next = nil, nil
}

// oldest returns the entry in the bucket with the smallest addr.Time, ties
// broken by whichever was encountered first while walking from the head.
func (b *usedBucket) oldest() *AddressEntry {
	var oldest *AddressEntry
	for e := b.head; e != nil; e = e.next {
		if oldest == nil || e.Addr.Time < oldest.Addr.Time {
			oldest = e
		}
	}
	return oldest
}
