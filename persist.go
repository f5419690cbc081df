// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/wire"
)

// pver is the protocol version passed to the wire package's compact-size
// codec. This package has no wire protocol version of its own; the codec is
// used purely for its varint encoding, which is not version-sensitive.
const pver = 0

// defaultServices is substituted for a source address' services field when
// reading a persisted store, since the on-disk record for a source address
// carries only its identity (IP and port), not its own services or
// timestamp.
const defaultServices ServiceFlag = 0

// OpenFlags controls in-core behavior of Open beyond what the persisted
// format itself dictates. It does not control seed resolution or any other
// network activity, both of which are entirely the caller's responsibility.
type OpenFlags uint8

// AllowMissingFile makes Open treat an absent persistence file as a
// successful open of an empty store, rather than a FileError.
const AllowMissingFile OpenFlags = 1 << iota

// Open loads the manager's state from its persistence file. With filePath
// empty, Open is a no-op. A decode failure fully resets the store and is
// reported as a DecodeError; a missing file is reported as a FileError
// unless flags includes AllowMissingFile, and a file that exists but cannot
// be read is always reported as a FileError.
func (m *AddrManager) Open(flags OpenFlags) error {
	if m.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) && flags&AllowMissingFile != 0 {
			log.Infof("no peers file found at %s, starting with an empty store", m.filePath)
			return nil
		}
		log.Errorf("error opening file %s: %v", m.filePath, err)
		return fileError(ErrFileOpen, fmt.Sprintf("addrmgr: open %s: %v", m.filePath, err))
	}

	if err := m.load(data); err != nil {
		log.Warnf("failed to parse file %s: %v", m.filePath, err)
		m.Reset()
		return err
	}
	log.Infof("loaded %d addresses from file %s", m.Total(), m.filePath)
	return nil
}

// Close flushes any pending changes to disk. It has no other effect: the
// manager runs no background goroutines to stop.
func (m *AddrManager) Close() error {
	return m.Flush()
}

// Flush writes the manager's current state to its persistence file if
// anything has changed since the last successful Open or Flush. The write
// is atomic: it is staged to a temporary file and renamed into place. A
// write failure leaves the in-memory state untouched.
func (m *AddrManager) Flush() error {
	if m.filePath == "" || !m.dirty {
		return nil
	}

	buf := m.dump()

	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		log.Errorf("error writing file %s: %v", tmp, err)
		return fileError(ErrFileWrite, fmt.Sprintf("addrmgr: write %s: %v", tmp, err))
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		log.Errorf("error renaming %s to %s: %v", tmp, m.filePath, err)
		return fileError(ErrFileWrite, fmt.Sprintf("addrmgr: rename %s: %v", tmp, err))
	}
	m.dirty = false
	log.Debugf("flushed %d addresses to file %s", m.Total(), m.filePath)
	return nil
}

// dump serializes the manager's entire state into the binary layout Open
// reads back.
func (m *AddrManager) dump() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, uint32(serializationVersion))
	binary.Write(buf, binary.LittleEndian, m.networkMagic)
	buf.Write(m.key[:])

	wire.WriteVarInt(buf, pver, uint64(len(m.index)))
	for _, e := range m.index {
		writeEntryRecord(buf, e)
	}

	for b := 0; b < freshBucketCount; b++ {
		bucket := m.fresh[b]
		wire.WriteVarInt(buf, pver, uint64(len(bucket)))
		for key := range bucket {
			writeAddressKey(buf, key)
		}
	}

	for b := 0; b < usedBucketCount; b++ {
		bucket := m.used[b]
		var length uint64
		if bucket != nil {
			length = uint64(bucket.length)
		}
		wire.WriteVarInt(buf, pver, length)
		if bucket != nil {
			for e := bucket.head; e != nil; e = e.next {
				writeAddressKey(buf, e.Addr.Key())
			}
		}
	}

	return buf.Bytes()
}

// load reconstructs the manager's state from a serialized dump, fully
// revalidating every cross-reference along the way. Any structural problem
// is reported and leaves the caller to reset the store.
func (m *AddrManager) load(data []byte) error {
	r := bytes.NewReader(data)

	var version, magic uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return decodeError(ErrTruncated, "addrmgr: truncated before version")
	}
	if version != serializationVersion {
		return decodeError(ErrVersionMismatch, fmt.Sprintf("addrmgr: unsupported version %d", version))
	}
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return decodeError(ErrTruncated, "addrmgr: truncated before network magic")
	}
	if magic != m.networkMagic {
		return decodeError(ErrNetworkMismatch, fmt.Sprintf("addrmgr: network magic mismatch: got %x, want %x", magic, m.networkMagic))
	}

	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return decodeError(ErrTruncated, "addrmgr: truncated before bucket secret")
	}

	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return decodeError(ErrTruncated, "addrmgr: truncated entry count")
	}

	now := m.clock.Now()
	index := make(map[AddressKey]*AddressEntry, n)
	for i := uint64(0); i < n; i++ {
		entry, key, err := readEntryRecord(r, now)
		if err != nil {
			return decodeError(ErrTruncated, "addrmgr: truncated entry record")
		}
		if _, exists := index[key]; exists {
			return decodeError(ErrDuplicateKey, "addrmgr: duplicate address key in entries section")
		}
		index[key] = entry
	}

	var fresh [freshBucketCount]map[AddressKey]*AddressEntry
	totalFresh := 0
	for b := 0; b < freshBucketCount; b++ {
		fresh[b] = make(map[AddressKey]*AddressEntry)

		length, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return decodeError(ErrTruncated, "addrmgr: truncated fresh bucket count")
		}
		if length > maxBucketEntries {
			return decodeError(ErrBucketOverflow, fmt.Sprintf("addrmgr: fresh bucket %d exceeds capacity", b))
		}

		for i := uint64(0); i < length; i++ {
			key, err := readAddressKey(r)
			if err != nil {
				return decodeError(ErrTruncated, "addrmgr: truncated fresh bucket key")
			}
			entry, ok := index[key]
			if !ok {
				return decodeError(ErrDanglingKey, "addrmgr: fresh bucket references an unknown address")
			}
			if entry.RefCount == 0 {
				totalFresh++
			}
			entry.RefCount++
			fresh[b][key] = entry
		}
	}

	var used [usedBucketCount]*usedBucket
	totalUsed := 0
	for b := 0; b < usedBucketCount; b++ {
		length, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return decodeError(ErrTruncated, "addrmgr: truncated used bucket count")
		}
		if length > maxBucketEntries {
			return decodeError(ErrBucketOverflow, fmt.Sprintf("addrmgr: used bucket %d exceeds capacity", b))
		}
		if length == 0 {
			continue
		}

		bucket := &usedBucket{}
		for i := uint64(0); i < length; i++ {
			key, err := readAddressKey(r)
			if err != nil {
				return decodeError(ErrTruncated, "addrmgr: truncated used bucket key")
			}
			entry, ok := index[key]
			if !ok {
				return decodeError(ErrDanglingKey, "addrmgr: used bucket references an unknown address")
			}
			if entry.Used || entry.RefCount != 0 {
				return decodeError(ErrRefCountInvariant, "addrmgr: used bucket references an already-placed address")
			}
			entry.Used = true
			entry.usedIdx = b
			bucket.pushBack(entry)
			totalUsed++
		}
		used[b] = bucket
	}

	if r.Len() != 0 {
		return decodeError(ErrTrailingBytes, "addrmgr: trailing bytes after used section")
	}

	for _, entry := range index {
		if !entry.Used && entry.RefCount == 0 {
			return decodeError(ErrDanglingEntry, "addrmgr: entry neither used nor referenced by any fresh bucket")
		}
	}

	m.key = key
	m.index = index
	m.fresh = fresh
	m.used = used
	m.totalFresh = totalFresh
	m.totalUsed = totalUsed
	m.dirty = false
	return nil
}

// writeAddressKey writes an AddressKey in its 18-byte on-wire form.
func writeAddressKey(w io.Writer, k AddressKey) {
	w.Write(k.IP[:])
	binary.Write(w, binary.LittleEndian, k.Port)
}

// readAddressKey reads an 18-byte AddressKey.
func readAddressKey(r io.Reader) (AddressKey, error) {
	var k AddressKey
	if _, err := io.ReadFull(r, k.IP[:]); err != nil {
		return k, err
	}
	if err := binary.Read(r, binary.LittleEndian, &k.Port); err != nil {
		return k, err
	}
	return k, nil
}

// writeEntryRecord writes a 72-byte entry record: the address key, its
// services and timestamp, the source's key, and the attempt/success
// history.
func writeEntryRecord(w io.Writer, e *AddressEntry) {
	writeAddressKey(w, e.Addr.Key())
	binary.Write(w, binary.LittleEndian, uint64(e.Addr.Services))
	binary.Write(w, binary.LittleEndian, uint64(e.Addr.Time))
	writeAddressKey(w, e.Src.Key())
	binary.Write(w, binary.LittleEndian, uint32(e.Attempts))
	binary.Write(w, binary.LittleEndian, uint64(e.LastSuccess))
	binary.Write(w, binary.LittleEndian, uint64(e.LastAttempt))
}

// readEntryRecord reads a 72-byte entry record, zero-initializing the
// transient fields (used, ref count, list pointers) that are not part of
// the persisted layout and reconstructing the source address' services and
// timestamp, neither of which is stored on disk.
func readEntryRecord(r io.Reader, now int64) (*AddressEntry, AddressKey, error) {
	addrKey, err := readAddressKey(r)
	if err != nil {
		return nil, AddressKey{}, err
	}
	var services, addrTime uint64
	if err := binary.Read(r, binary.LittleEndian, &services); err != nil {
		return nil, AddressKey{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &addrTime); err != nil {
		return nil, AddressKey{}, err
	}
	srcKey, err := readAddressKey(r)
	if err != nil {
		return nil, AddressKey{}, err
	}
	var attempts uint32
	if err := binary.Read(r, binary.LittleEndian, &attempts); err != nil {
		return nil, AddressKey{}, err
	}
	var lastSuccess, lastAttempt uint64
	if err := binary.Read(r, binary.LittleEndian, &lastSuccess); err != nil {
		return nil, AddressKey{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &lastAttempt); err != nil {
		return nil, AddressKey{}, err
	}

	addr := &NetworkAddress{
		IP:       addrKey.netIP(),
		Port:     addrKey.Port,
		Services: ServiceFlag(services),
		Time:     int64(addrTime),
	}
	src := &NetworkAddress{
		IP:       srcKey.netIP(),
		Port:     srcKey.Port,
		Services: defaultServices,
		Time:     now,
	}
	entry := &AddressEntry{
		Addr:        addr,
		Src:         src,
		Attempts:    int32(attempts),
		LastSuccess: int64(lastSuccess),
		LastAttempt: int64(lastAttempt),
		usedIdx:     -1,
	}
	return entry, addrKey, nil
}
