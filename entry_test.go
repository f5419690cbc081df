// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import "testing"

func TestChance(t *testing.T) {
	const now = 1700000000

	tests := []struct {
		name        string
		attempts    int32
		lastAttempt int64
		want        float64
	}{
		{"never attempted", 0, 0, 1.0},
		{"one failure", 1, 0, 0.66},
		{"capped at eight failures", 20, 0, pow66(8)},
		{"very recent attempt", 0, now - 1, 0.01},
		{"recent attempt with failures", 3, now - 1, 0.01 * pow66(3)},
		{"attempt just outside the window", 0, now - recentAttemptChanceWindow, 1.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := &AddressEntry{
				Addr:        &NetworkAddress{Time: now},
				Attempts:    test.attempts,
				LastAttempt: test.lastAttempt,
			}
			got := e.chance(now)
			if diff := got - test.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("chance() = %v, want %v", got, test.want)
			}
		})
	}
}

func pow66(n int) float64 {
	c := 1.0
	for i := 0; i < n; i++ {
		c *= 0.66
	}
	return c
}

func TestIsStale(t *testing.T) {
	const now = 1700000000

	tests := []struct {
		name string
		e    *AddressEntry
		want bool
	}{{
		name: "fresh and recently seen",
		e:    &AddressEntry{Addr: &NetworkAddress{Time: now - 100}},
		want: false,
	}, {
		name: "recently attempted overrides everything",
		e: &AddressEntry{
			Addr:        &NetworkAddress{Time: 0},
			LastAttempt: now - 30,
		},
		want: false,
	}, {
		name: "claims to be from the future",
		e:    &AddressEntry{Addr: &NetworkAddress{Time: now + 700}},
		want: true,
	}, {
		name: "zero timestamp",
		e:    &AddressEntry{Addr: &NetworkAddress{Time: 0}},
		want: true,
	}, {
		name: "older than the horizon",
		e:    &AddressEntry{Addr: &NetworkAddress{Time: now - 31*86400}},
		want: true,
	}, {
		name: "never succeeded after enough attempts",
		e: &AddressEntry{
			Addr:     &NetworkAddress{Time: now - 100},
			Attempts: neverSucceededMinAttempts,
		},
		want: true,
	}, {
		name: "succeeded too long ago with many failures",
		e: &AddressEntry{
			Addr:        &NetworkAddress{Time: now - 100},
			LastSuccess: now - 8*86400,
			Attempts:    maxFailuresInWindow,
		},
		want: true,
	}, {
		name: "succeeded recently despite many failures",
		e: &AddressEntry{
			Addr:        &NetworkAddress{Time: now - 100},
			LastSuccess: now - 100,
			Attempts:    maxFailuresInWindow,
		},
		want: false,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.e.isStale(now); got != test.want {
				t.Errorf("isStale() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestUsedBucketList(t *testing.T) {
	b := &usedBucket{}
	a := &AddressEntry{Addr: &NetworkAddress{Time: 1}}
	c := &AddressEntry{Addr: &NetworkAddress{Time: 2}}
	d := &AddressEntry{Addr: &NetworkAddress{Time: 3}}

	b.pushBack(a)
	b.pushBack(c)
	b.pushBack(d)
	if b.length != 3 {
		t.Fatalf("length = %d, want 3", b.length)
	}
	if b.head != a || b.tail != d {
		t.Fatalf("unexpected head/tail after pushBack")
	}

	if oldest := b.oldest(); oldest != a {
		t.Fatalf("oldest() = %v, want the entry with the smallest time", oldest)
	}

	b.remove(c)
	if b.length != 2 || a.next != d || d.prev != a {
		t.Fatalf("remove() did not relink the list correctly")
	}

	e := &AddressEntry{Addr: &NetworkAddress{Time: 4}}
	b.replace(a, e)
	if b.head != e || e.next != d || d.prev != e {
		t.Fatalf("replace() did not preserve list position")
	}
	if a.prev != nil || a.next != nil {
		t.Fatalf("replace() left dangling pointers on the replaced entry")
	}
}
