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

//go:build go1.18

package testonly

import (
	"bytes"
	"math"
	"testing"

	"github.com/authentidb/merkledb/path"
	"github.com/authentidb/merkledb/prooflist"
	"github.com/authentidb/merkledb/proofmap"
	"github.com/authentidb/merkledb/store"
)

// FuzzListRangeProofAndVerify builds a ProofList of size entries and
// checks that every requested sub-range [start, end) produces a proof
// that Check accepts and that reconstructs to the list's own ObjectHash.
func FuzzListRangeProofAndVerify(f *testing.F) {
	for size := uint64(0); size <= 8; size++ {
		for start := uint64(0); start < size; start++ {
			for end := start + 1; end <= size; end++ {
				f.Add(size, start, end)
			}
		}
	}
	f.Fuzz(func(t *testing.T, size, start, end uint64) {
		if size >= math.MaxUint16 || start >= end || end > size {
			return
		}
		l, err := prooflist.Open(store.NewMemView(), "fuzz")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for _, v := range Entries(size) {
			l.Append(v)
		}
		want := l.ObjectHash()

		p := l.GetRangeProof(start, end)
		checked, err := p.CheckAgainstHash(want)
		if err != nil {
			t.Fatalf("CheckAgainstHash: %v", err)
		}
		if uint64(len(checked.Entries)) != end-start {
			t.Fatalf("got %d entries, want %d", len(checked.Entries), end-start)
		}
		for i, e := range checked.Entries {
			if e.Index != start+uint64(i) {
				t.Fatalf("entry %d has index %d, want %d", i, e.Index, start+uint64(i))
			}
			if !bytes.Equal(e.Value, l.Get(e.Index)) {
				t.Fatalf("entry %d value mismatch", i)
			}
		}
	})
}

// FuzzListTamperedProofRejected appends a zero byte to a proved value and
// checks that CheckAgainstHash never accepts the tampered proof.
func FuzzListTamperedProofRejected(f *testing.F) {
	for size := uint64(1); size <= 8; size++ {
		for index := uint64(0); index < size; index++ {
			f.Add(size, index)
		}
	}
	f.Fuzz(func(t *testing.T, size, index uint64) {
		if size == 0 || size >= math.MaxUint16 || index >= size {
			return
		}
		l, err := prooflist.Open(store.NewMemView(), "fuzz")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for _, v := range Entries(size) {
			l.Append(v)
		}
		want := l.ObjectHash()

		p := l.GetProof(index)
		p.Entries[0].Value = append(append([]byte(nil), p.Entries[0].Value...), 0x00)
		if _, err := p.CheckAgainstHash(want); err == nil {
			t.Fatalf("tampered proof for index %d was accepted", index)
		}
	})
}

// FuzzMapInsertionOrderIndependence checks that object_hash depends only
// on the final key/value set, not insertion order, across
// randomly permuted insertion sequences.
func FuzzMapInsertionOrderIndependence(f *testing.F) {
	f.Add(0, uint64(1))
	f.Add(5, uint64(12345))
	f.Add(16, uint64(98765))
	f.Fuzz(func(t *testing.T, n int, seed uint64) {
		if n < 0 || n > 64 {
			return
		}
		keys, values := KVPairs(n)

		base, err := proofmap.Open(store.NewMemView(), "base", path.HashedKey{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for i := 0; i < n; i++ {
			base.Put(keys[i], values[i])
		}

		perm := Permutation(n, seed)
		shuffled, err := proofmap.Open(store.NewMemView(), "shuffled", path.HashedKey{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for _, i := range perm {
			shuffled.Put(keys[i], values[i])
		}

		if base.ObjectHash() != shuffled.ObjectHash() {
			t.Fatalf("object_hash depends on insertion order: base=%x shuffled=%x", base.ObjectHash(), shuffled.ObjectHash())
		}
	})
}

// FuzzMapMultiProofAndVerify populates a ProofMap and checks that a
// multiproof over a pseudo-random subset of keys (plus one key known to
// be absent) verifies against the map's own ObjectHash and correctly
// labels present vs. missing entries.
func FuzzMapMultiProofAndVerify(f *testing.F) {
	f.Add(4, uint64(1))
	f.Add(17, uint64(424242))
	f.Fuzz(func(t *testing.T, n int, seed uint64) {
		if n <= 0 || n > 64 {
			return
		}
		keys, values := KVPairs(n)
		m, err := proofmap.Open(store.NewMemView(), "m", path.HashedKey{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for i := 0; i < n; i++ {
			m.Put(keys[i], values[i])
		}
		want := m.ObjectHash()

		perm := Permutation(n, seed)
		requestCount := 1 + int(seed%uint64(n))
		var request [][]byte
		for _, i := range perm[:requestCount] {
			request = append(request, keys[i])
		}
		request = append(request, []byte("definitely-absent-key"))

		proof := m.GetMultiProof(request)
		checked, err := proof.CheckAgainstHash(path.HashedKey{}, want)
		if err != nil {
			t.Fatalf("CheckAgainstHash: %v", err)
		}
		if len(checked.Entries) != len(request) {
			t.Fatalf("got %d entries, want %d", len(checked.Entries), len(request))
		}
		for _, e := range checked.Entries {
			if string(e.Key) == "definitely-absent-key" {
				if !e.Missing {
					t.Fatalf("absent key reported present")
				}
				continue
			}
			if e.Missing {
				t.Fatalf("present key %q reported missing", e.Key)
			}
			gotValue, ok := m.Get(e.Key)
			if !ok || !bytes.Equal(gotValue, e.Value) {
				t.Fatalf("value mismatch for key %q", e.Key)
			}
		}
	})
}

// FuzzMapRemoveRestoresPriorObjectHash checks that removing a key
// restores the object_hash the map had before that key was ever
// inserted, across random key sets.
func FuzzMapRemoveRestoresPriorObjectHash(f *testing.F) {
	f.Add(3, uint64(7))
	f.Add(20, uint64(555))
	f.Fuzz(func(t *testing.T, n int, seed uint64) {
		if n <= 0 || n > 64 {
			return
		}
		keys, values := KVPairs(n)
		m, err := proofmap.Open(store.NewMemView(), "m", path.HashedKey{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		last := int(seed % uint64(n))
		keys[last], keys[n-1] = keys[n-1], keys[last]
		values[last], values[n-1] = values[n-1], values[last]

		for i := 0; i < n-1; i++ {
			m.Put(keys[i], values[i])
		}
		before := m.ObjectHash()

		m.Put(keys[n-1], values[n-1])
		if !m.Remove(keys[n-1]) {
			t.Fatalf("Remove reported key %q absent right after Put", keys[n-1])
		}

		m2, err := proofmap.Open(store.NewMemView(), "m2", path.HashedKey{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for i := 0; i < n-1; i++ {
			m2.Put(keys[i], values[i])
		}
		if m.ObjectHash() != before || m.ObjectHash() != m2.ObjectHash() {
			t.Fatalf("object_hash after remove = %x, want %x", m.ObjectHash(), before)
		}
	})
}
