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

// Package prooflist implements ProofList, an append-only-oriented Merkle
// tree over a dense, indexed sequence of values, together with the range
// proof it can emit and the pure verifier that checks one against a
// trusted root hash.
package prooflist

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/authentidb/merkledb"
	"github.com/authentidb/merkledb/store"
)

var lengthKey = []byte{0xFF}

func nodeKey(height uint8, index uint64) []byte {
	key := make([]byte, 9)
	key[0] = height
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

// treeHeight returns the height of a ProofList with the given length:
// 0 for an empty list, otherwise ceil(log2(length))+1.
func treeHeight(length uint64) int {
	if length == 0 {
		return 0
	}
	return bits.Len64(length-1) + 1
}

// lastIndexAtHeight returns the index of the rightmost node at height h
// (h >= 1) of a ProofList holding length elements. length must be > 0.
func lastIndexAtHeight(length uint64, h int) uint64 {
	return (length - 1) >> uint(h-1)
}

// List is the ProofList engine (component C5): it maintains the Merkle
// tree over a dense list, stored through a store.ScopedView namespaced to
// this index's name within the shared root view.
type List struct {
	view   store.View
	pool   *store.Pool
	name   string
	meta   store.IndexMetadata
	length uint64
}

// Open attaches a List engine to the index named name within root,
// registering it with root's store.Pool as store.IndexTypeProofList. It
// returns merkledb.ErrWrongIndexType if name already exists as a different
// index type (a ProofMap, for example). The list's length is read back from
// its own key within the scoped view; IndexMetadata carries no ProofList
// state of its own.
func Open(root store.View, name string) (*List, error) {
	pool := store.NewPool(root)
	meta, err := pool.Open(name, store.IndexTypeProofList)
	if err != nil {
		return nil, err
	}
	l := &List{
		view: store.NewScopedView(root, name),
		pool: pool,
		name: name,
		meta: meta,
	}
	if data, ok := l.view.Get(lengthKey); ok && len(data) == 8 {
		l.length = binary.BigEndian.Uint64(data)
	}
	return l, nil
}

// Len returns the number of elements.
func (l *List) Len() uint64 { return l.length }

// IsEmpty reports whether the list has no elements.
func (l *List) IsEmpty() bool { return l.length == 0 }

func (l *List) readHash(height uint8, index uint64) (merkledb.Hash, bool) {
	data, ok := l.view.Get(nodeKey(height, index))
	if !ok {
		return merkledb.Hash{}, false
	}
	var h merkledb.Hash
	copy(h[:], data)
	return h, true
}

func (l *List) writeHash(height uint8, index uint64, h merkledb.Hash) {
	l.view.Put(nodeKey(height, index), h[:])
}

func (l *List) writeLength(n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	l.view.Put(lengthKey, buf[:])
	l.length = n
}

// Get returns the value stored at index. It panics if index >= Len(): this
// is a caller precondition violation, not part of the error taxonomy.
func (l *List) Get(index uint64) []byte {
	if index >= l.length {
		panic(fmt.Sprintf("prooflist: index %d out of range, length %d", index, l.length))
	}
	data, _ := l.view.Get(nodeKey(0, index))
	return data
}

func (l *List) recomputeUpwards(leafIdx uint64, height int) {
	i := leafIdx
	for h := 2; h <= height; h++ {
		i >>= 1
		left, _ := l.readHash(uint8(h-1), 2*i)
		right, rightOK := l.readHash(uint8(h-1), 2*i+1)
		var nh merkledb.Hash
		if rightOK {
			nh = merkledb.HashListBranch(left, right)
		} else {
			nh = merkledb.HashListSingleChild(left)
		}
		l.writeHash(uint8(h), i, nh)
	}
}

// Append adds v as the new last element, updating hashes along the tree's
// right spine. The number of node writes is O(log Len()).
func (l *List) Append(v []byte) {
	idx := l.length
	l.view.Put(nodeKey(0, idx), v)
	leafHash := merkledb.HashLeaf(v)
	l.writeHash(1, idx, leafHash)
	l.writeLength(idx + 1)
	l.recomputeUpwards(idx, treeHeight(l.length))
}

// Extend appends every value in vs in order. The resulting tree is
// identical to appending each value one by one.
func (l *List) Extend(vs [][]byte) {
	for _, v := range vs {
		l.Append(v)
	}
}

// Set overwrites the value at index, recomputing the path from that leaf
// to the root. It panics if index >= Len().
func (l *List) Set(index uint64, v []byte) {
	if index >= l.length {
		panic(fmt.Sprintf("prooflist: index %d out of range, length %d", index, l.length))
	}
	l.view.Put(nodeKey(0, index), v)
	l.writeHash(1, index, merkledb.HashLeaf(v))
	l.recomputeUpwards(index, treeHeight(l.length))
}

// Clear removes every key owned by this index's view. Cost is O(Len()).
func (l *List) Clear() {
	it := l.view.Iterator(nil)
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	it.Close()
	for _, k := range keys {
		l.view.Remove(k)
	}
	l.length = 0
}

// Values returns every element in index order. The returned slice is a
// snapshot; later mutations do not affect it.
func (l *List) Values() [][]byte {
	values := make([][]byte, l.length)
	for i := range values {
		values[i] = l.Get(uint64(i))
	}
	return values
}

// ListEntry pairs a sequential index with its stored value, as yielded by
// Iter and IterFrom.
type ListEntry struct {
	Index uint64
	Value []byte
}

// ListIterator walks a List's entries in ascending index order without
// materializing them all at once, unlike Values.
type ListIterator struct {
	it      store.Iterator
	pending uint64
}

// Next advances the iterator and returns the next entry, or false once
// the list is exhausted.
func (it *ListIterator) Next() (ListEntry, bool) {
	for ; it.pending > 0; it.pending-- {
		if !it.it.Next() {
			return ListEntry{}, false
		}
	}
	if !it.it.Next() {
		return ListEntry{}, false
	}
	key := it.it.Key()
	return ListEntry{
		Index: binary.BigEndian.Uint64(key[1:]),
		Value: append([]byte(nil), it.it.Value()...),
	}, true
}

// Close releases resources held by the iterator.
func (it *ListIterator) Close() error { return it.it.Close() }

// Iter returns an iterator over every element, starting at index 0.
func (l *List) Iter() *ListIterator { return l.IterFrom(0) }

// IterFrom returns an iterator over every element at index >= start. Cost
// is O(start) to reach the first yielded entry, since the underlying
// store.View offers prefix-scoped scanning but no direct seek to an
// arbitrary key.
func (l *List) IterFrom(start uint64) *ListIterator {
	return &ListIterator{it: l.view.Iterator([]byte{0}), pending: start}
}

// Root returns the Merkle root of the list: ZeroHash if empty, otherwise
// the hash stored at (treeHeight, 0).
func (l *List) Root() merkledb.Hash {
	h := treeHeight(l.length)
	if h == 0 {
		return merkledb.ZeroHash
	}
	root, _ := l.readHash(uint8(h), 0)
	return root
}

// ObjectHash returns the authenticating digest of the list's full
// contents.
func (l *List) ObjectHash() merkledb.Hash {
	return merkledb.HashListRoot(l.length, l.Root())
}
