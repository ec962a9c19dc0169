// Copyright 2025 The Authentidb Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"encoding/binary"
	"fmt"

	"github.com/authentidb/merkledb"
)

// IndexType distinguishes the two authenticated index kinds that can be
// registered against a single View.
type IndexType uint32

const (
	// IndexTypeUnknown marks a metadata record that failed to decode or
	// was never written; callers should never see this value from a
	// successful Pool lookup.
	IndexTypeUnknown IndexType = 0
	IndexTypeProofList IndexType = 1
	IndexTypeProofMap  IndexType = 2
)

func (t IndexType) String() string {
	switch t {
	case IndexTypeProofList:
		return "ProofList"
	case IndexTypeProofMap:
		return "ProofMap"
	default:
		return "Unknown"
	}
}

const stateTag uint32 = 0

// IndexMetadata is the per-index header persisted once, on first access,
// in a reserved system key range of the owning View: a globally unique
// identifier, the index's type, and an optional opaque state blob (the
// current root path, for a ProofMap).
type IndexMetadata struct {
	Identifier uint64
	Type       IndexType
	State      []byte // nil when absent
}

// ToBytes encodes m as identifier (u64 LE) || type (u32 LE), followed by a
// TLV-framed state block (tag u32 LE || length u32 LE || bytes) when State
// is non-nil.
func (m IndexMetadata) ToBytes() []byte {
	size := 8 + 4
	if m.State != nil {
		size += 4 + 4 + len(m.State)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:8], m.Identifier)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.Type))
	if m.State != nil {
		binary.LittleEndian.PutUint32(buf[12:16], stateTag)
		binary.LittleEndian.PutUint32(buf[16:20], uint32(len(m.State)))
		copy(buf[20:], m.State)
	}
	return buf
}

// MetadataFromBytes decodes a record produced by ToBytes.
func MetadataFromBytes(data []byte) (IndexMetadata, error) {
	if len(data) < 12 {
		return IndexMetadata{}, fmt.Errorf("store: metadata record too short (%d bytes)", len(data))
	}
	m := IndexMetadata{
		Identifier: binary.LittleEndian.Uint64(data[0:8]),
		Type:       IndexType(binary.LittleEndian.Uint32(data[8:12])),
	}
	rest := data[12:]
	if len(rest) == 0 {
		return m, nil
	}
	if len(rest) < 8 {
		return IndexMetadata{}, fmt.Errorf("store: truncated metadata state header")
	}
	tag := binary.LittleEndian.Uint32(rest[0:4])
	if tag != stateTag {
		return IndexMetadata{}, fmt.Errorf("store: metadata state has unknown tag %d", tag)
	}
	length := binary.LittleEndian.Uint32(rest[4:8])
	if int(8+length) > len(rest) {
		return IndexMetadata{}, fmt.Errorf("store: metadata state truncated")
	}
	m.State = make([]byte, length)
	copy(m.State, rest[8:8+length])
	return m, nil
}

var metadataKeyPrefix = []byte{0xFF, 'i', 'd', 'x'}

func metadataKey(name string) []byte {
	return append(append([]byte(nil), metadataKeyPrefix...), []byte(name)...)
}

var poolCounterKey = append(append([]byte(nil), metadataKeyPrefix...), []byte("__pool_len__")...)

// Pool assigns and persists IndexMetadata records for named indices
// against a shared View. Identifiers are assigned from a monotonically
// increasing counter stored alongside the records and are never reused,
// matching the source's IndexesPool.
type Pool struct {
	view View
}

// NewPool returns a Pool operating against view.
func NewPool(view View) *Pool { return &Pool{view: view} }

func (p *Pool) len() uint64 {
	data, ok := p.view.Get(poolCounterKey)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint64(data)
}

func (p *Pool) setLen(n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	p.view.Put(poolCounterKey, buf[:])
}

// Lookup returns the metadata for name, if it has ever been created.
func (p *Pool) Lookup(name string) (IndexMetadata, bool, error) {
	data, ok := p.view.Get(metadataKey(name))
	if !ok {
		return IndexMetadata{}, false, nil
	}
	m, err := MetadataFromBytes(data)
	if err != nil {
		return IndexMetadata{}, false, err
	}
	return m, true, nil
}

// Open returns the metadata for name, creating a fresh record of the
// given type if none exists yet. If a record exists with a different
// type, it returns merkledb.ErrWrongIndexType.
func (p *Pool) Open(name string, wantType IndexType) (IndexMetadata, error) {
	existing, ok, err := p.Lookup(name)
	if err != nil {
		return IndexMetadata{}, err
	}
	if ok {
		if existing.Type != wantType {
			return IndexMetadata{}, merkledb.ErrWrongIndexType
		}
		return existing, nil
	}
	n := p.len()
	m := IndexMetadata{Identifier: n + 1, Type: wantType}
	p.view.Put(metadataKey(name), m.ToBytes())
	p.setLen(n + 1)
	return m, nil
}

// SetState persists an updated state blob for the index named name, whose
// metadata has already been created via Open. Passing a nil state clears
// it.
func (p *Pool) SetState(name string, m IndexMetadata, state []byte) IndexMetadata {
	m.State = state
	p.view.Put(metadataKey(name), m.ToBytes())
	return m
}
