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

package proofmap

import (
	"fmt"

	"github.com/authentidb/merkledb"
	"github.com/authentidb/merkledb/path"
	"github.com/authentidb/merkledb/store"
)

const (
	branchPrefix byte = 0x00
	leafPrefix   byte = 0x01
	valuePrefix  byte = 0x02
)

var sizeKey = []byte{0x03}

func branchKey(p path.ProofPath) []byte {
	b := p.Bytes()
	return append([]byte{branchPrefix}, b[:]...)
}

func leafKey(p path.ProofPath) []byte {
	b := p.Bytes()
	return append([]byte{leafPrefix}, b[:]...)
}

func valueKey(userKey []byte) []byte {
	return append([]byte{valuePrefix}, userKey...)
}

// Map is the ProofMap engine (component C7): it maintains a Merkle binary
// Patricia trie over 256-bit paths derived from caller keys via keyPath,
// through a pool-tracked, named index.
type Map struct {
	data    store.View
	pool    *store.Pool
	name    string
	meta    store.IndexMetadata
	root    *path.ProofPath // nil when empty
	keyPath path.ToProofPath
	size    uint64
}

// Open attaches a Map engine to the index named name inside root,
// registering its metadata (via a store.Pool) on first use. keyPath
// selects path.HashedKey or path.RawKey as the caller-key-to-trie-path
// policy. Open returns merkledb.ErrWrongIndexType if name already names a
// ProofList in root.
func Open(root store.View, name string, keyPath path.ToProofPath) (*Map, error) {
	pool := store.NewPool(root)
	meta, err := pool.Open(name, store.IndexTypeProofMap)
	if err != nil {
		return nil, err
	}
	m := &Map{
		data:    store.NewScopedView(root, name),
		pool:    pool,
		name:    name,
		meta:    meta,
		keyPath: keyPath,
	}
	if len(meta.State) > 0 {
		p, err := path.Read(meta.State)
		if err != nil {
			return nil, fmt.Errorf("proofmap: decoding stored root path: %w", err)
		}
		m.root = &p
	}
	if data, ok := m.data.Get(sizeKey); ok && len(data) == 8 {
		m.size = beUint64(data)
	}
	return m, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func (m *Map) writeSize(n uint64) {
	buf := make([]byte, 8)
	v := n
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	m.data.Put(sizeKey, buf)
	m.size = n
}

func (m *Map) setRoot(p *path.ProofPath) {
	m.root = p
	var state []byte
	if p != nil {
		b := p.Bytes()
		state = b[:]
	}
	m.meta = m.pool.SetState(m.name, m.meta, state)
}

// Len returns the number of entries.
func (m *Map) Len() uint64 { return m.size }

// IsEmpty reports whether the map has no entries.
func (m *Map) IsEmpty() bool { return m.root == nil }

func (m *Map) readLeafHash(p path.ProofPath) (merkledb.Hash, bool) {
	data, ok := m.data.Get(leafKey(p))
	if !ok {
		return merkledb.Hash{}, false
	}
	var h merkledb.Hash
	copy(h[:], data)
	return h, true
}

func (m *Map) writeLeaf(p path.ProofPath, h merkledb.Hash) {
	m.data.Put(leafKey(p), h.Bytes())
}

func (m *Map) getBranch(p path.ProofPath) (*BranchNode, bool) {
	data, ok := m.data.Get(branchKey(p))
	if !ok {
		return nil, false
	}
	b, err := branchNodeFromBytes(data)
	if err != nil {
		panic(fmt.Sprintf("proofmap: %v", err))
	}
	return b, true
}

// hashOf returns the plain node hash of p (a leaf's stored hash_leaf value,
// or a branch's ObjectHash), the representation used inside a parent
// BranchNode's child slot. It is never the single-entry-map-wrapped form;
// that wrapping only applies to the trie's overall Root/ObjectHash.
func (m *Map) hashOf(p path.ProofPath) merkledb.Hash {
	if p.IsLeaf() {
		h, ok := m.readLeafHash(p)
		if !ok {
			panic("proofmap: leaf node missing for recorded path")
		}
		return h
	}
	b, ok := m.getBranch(p)
	if !ok {
		panic("proofmap: branch node missing for recorded path")
	}
	return b.ObjectHash()
}

// Get returns the value stored for key, if present.
func (m *Map) Get(key []byte) ([]byte, bool) {
	return m.data.Get(valueKey(key))
}

// Contains reports whether key is present.
func (m *Map) Contains(key []byte) bool {
	return m.data.Contains(valueKey(key))
}

// Put inserts or overwrites the value for key.
func (m *Map) Put(key, value []byte) {
	kp := m.keyPath.Path(key)
	leafHash := merkledb.HashLeaf(value)
	_, existed := m.data.Get(valueKey(key))
	m.data.Put(valueKey(key), value)
	newRoot := m.insert(m.root, kp, leafHash)
	m.setRoot(&newRoot)
	if !existed {
		m.writeSize(m.size + 1)
	}
}

// insert writes leafHash at kp into the subtree currently rooted at
// existing (nil for an empty subtree), returning the path that should
// replace existing.
func (m *Map) insert(existing *path.ProofPath, kp path.ProofPath, leafHash merkledb.Hash) path.ProofPath {
	if existing == nil {
		m.writeLeaf(kp, leafHash)
		return kp
	}
	cur := *existing

	if cur.IsLeaf() {
		if cur.Equal(kp) {
			m.writeLeaf(kp, leafHash)
			return kp
		}
		i := cur.CommonPrefixLen(kp)
		existingHash, ok := m.readLeafHash(cur)
		if !ok {
			panic("proofmap: leaf node missing for recorded path")
		}
		branchPath := kp.Prefix(i)
		var b BranchNode
		b.SetChild(cur.Bit(i), cur, existingHash)
		b.SetChild(kp.Bit(i), kp, leafHash)
		m.writeLeaf(kp, leafHash)
		m.data.Put(branchKey(branchPath), b.toBytes())
		return branchPath
	}

	branch, ok := m.getBranch(cur)
	if !ok {
		panic("proofmap: branch node missing for recorded path")
	}
	i := cur.CommonPrefixLen(kp)
	if i >= cur.Len() {
		side := kp.Bit(cur.Len())
		childPath := branch.ChildPath(side)
		newChildPath := m.insert(&childPath, kp, leafHash)
		branch.SetChild(side, newChildPath, m.hashOf(newChildPath))
		m.data.Put(branchKey(cur), branch.toBytes())
		return cur
	}

	branchPath := kp.Prefix(i)
	var nb BranchNode
	nb.SetChild(cur.Bit(i), cur, branch.ObjectHash())
	nb.SetChild(kp.Bit(i), kp, leafHash)
	m.writeLeaf(kp, leafHash)
	m.data.Put(branchKey(branchPath), nb.toBytes())
	return branchPath
}

// Remove deletes key, reporting whether it was present.
func (m *Map) Remove(key []byte) bool {
	kp := m.keyPath.Path(key)
	newRoot, removed := m.remove(m.root, kp)
	if !removed {
		return false
	}
	m.data.Remove(valueKey(key))
	m.setRoot(newRoot)
	m.writeSize(m.size - 1)
	return true
}

// remove deletes the leaf at kp from the subtree at existing, returning
// the path that should replace existing (nil if the subtree vanished) and
// whether anything was removed.
func (m *Map) remove(existing *path.ProofPath, kp path.ProofPath) (*path.ProofPath, bool) {
	if existing == nil {
		return nil, false
	}
	cur := *existing

	if cur.IsLeaf() {
		if !cur.Equal(kp) {
			return &cur, false
		}
		m.data.Remove(leafKey(cur))
		return nil, true
	}

	branch, ok := m.getBranch(cur)
	if !ok {
		panic("proofmap: branch node missing for recorded path")
	}
	if cur.CommonPrefixLen(kp) < cur.Len() {
		return &cur, false
	}
	side := kp.Bit(cur.Len())
	childPath := branch.ChildPath(side)
	newChild, removed := m.remove(&childPath, kp)
	if !removed {
		return &cur, false
	}
	if newChild == nil {
		m.data.Remove(branchKey(cur))
		sibling := branch.ChildPath(side.Not())
		return &sibling, true
	}
	branch.SetChild(side, *newChild, m.hashOf(*newChild))
	m.data.Put(branchKey(cur), branch.toBytes())
	return &cur, true
}

// Clear removes every key owned by this index, including its metadata
// state (but not its IndexMetadata record itself, which persists for the
// life of the store).
func (m *Map) Clear() {
	it := m.data.Iterator(nil)
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	it.Close()
	for _, k := range keys {
		m.data.Remove(k)
	}
	m.setRoot(nil)
	m.size = 0
}

// Keys returns every stored key in ascending byte order of the caller's
// own key bytes (the order user values are namespaced under, not the
// trie's path order). The returned slice is a snapshot; later mutations
// do not affect it.
func (m *Map) Keys() [][]byte {
	it := m.data.Iterator([]byte{valuePrefix})
	defer it.Close()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()[1:]...))
	}
	return keys
}

// Values returns the value stored for each key in the same order as Keys.
func (m *Map) Values() [][]byte {
	it := m.data.Iterator([]byte{valuePrefix})
	defer it.Close()
	var values [][]byte
	for it.Next() {
		values = append(values, append([]byte(nil), it.Value()...))
	}
	return values
}

// MapEntry pairs a caller key with its stored value, as yielded by Iter
// and IterFrom.
type MapEntry struct {
	Key   []byte
	Value []byte
}

// MapIterator walks a Map's entries in the same ascending key-byte order
// as Keys/Values, without materializing them all at once.
type MapIterator struct {
	it      store.Iterator
	fromKey []byte
}

// Next advances the iterator and returns the next entry, or false once
// every key has been visited.
func (it *MapIterator) Next() (MapEntry, bool) {
	for it.it.Next() {
		key := it.it.Key()[1:]
		if it.fromKey != nil && bytesLess(key, it.fromKey) {
			continue
		}
		return MapEntry{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), it.it.Value()...),
		}, true
	}
	return MapEntry{}, false
}

// Close releases resources held by the iterator.
func (it *MapIterator) Close() error { return it.it.Close() }

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Iter returns an iterator over every entry, in ascending key-byte order.
func (m *Map) Iter() *MapIterator { return m.IterFrom(nil) }

// IterFrom returns an iterator over every entry whose key is >= start in
// byte order (start == nil behaves like Iter). Cost to reach the first
// yielded entry is O(n) in the number of keys skipped, since the
// underlying store.View offers prefix-scoped scanning but no direct seek
// to an arbitrary key.
func (m *Map) IterFrom(start []byte) *MapIterator {
	return &MapIterator{it: m.data.Iterator([]byte{valuePrefix}), fromKey: start}
}

// Root returns the trie's root hash: merkledb.ZeroHash if empty,
// hash_single_entry_map(path, leaf_hash) if the map holds exactly one
// entry, or the root BranchNode's ObjectHash otherwise.
func (m *Map) Root() merkledb.Hash {
	if m.root == nil {
		return merkledb.ZeroHash
	}
	p := *m.root
	if p.IsLeaf() {
		h, ok := m.readLeafHash(p)
		if !ok {
			panic("proofmap: leaf node missing for recorded path")
		}
		return merkledb.HashMapSingleEntry(p.Compress(), h)
	}
	b, ok := m.getBranch(p)
	if !ok {
		panic("proofmap: branch node missing for recorded path")
	}
	return b.ObjectHash()
}

// ObjectHash returns the authenticating digest of the map's full contents.
func (m *Map) ObjectHash() merkledb.Hash {
	return merkledb.HashMapRoot(m.Root())
}
