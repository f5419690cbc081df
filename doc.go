// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package addrmgr implements a peer address manager for a Bitcoin-style
peer-to-peer node.

# Address Manager Overview

A full node relies on a dynamic set of peers that connect and disconnect at
will.  Each node needs a way to remember addresses learned from gossip, seed
resolution, and direct connections, to score how reliable those addresses
are, and to hand out good candidates when the connection manager wants to
dial out.  Remote peers cannot be trusted: a malicious peer may advertise
addresses it does not control, or flood a node with addresses of peers it
does control in an attempt to eclipse the node's view of the network.

This package addresses that by segregating known addresses into two families
of buckets. Freshly learned, unconfirmed addresses live in one of 1024
"fresh" buckets; an address may occupy up to eight of them at once, indexed
by a keyed hash of its own network group and the group of whoever reported
it. Addresses that have completed a full handshake are promoted into exactly
one of 256 "used" buckets, indexed by a keyed hash of the address alone.
Bucket placement is parameterized by a 32-byte secret generated at
construction time, so a remote peer cannot predict or manipulate which
bucket an address it controls will land in.

Selection is biased random: the manager repeatedly draws a random bucket and
a random entry within it, then accepts the draw with probability
proportional to the entry's chance score, which decays with consecutive
connection failures and very recent attempts. This makes the manager prefer
addresses that have a track record of working, without ever fully starving
addresses that have not yet been tried.

Unlike many of its siblings in this module family, the manager makes no
attempt to be concurrency-safe on its own: it is a single-owner,
single-threaded object, and a caller that shares one across goroutines is
responsible for serializing access.
*/
package addrmgr
