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
	"testing"

	"github.com/authentidb/merkledb/path"
)

func TestSingleEntryProofRoundTrip(t *testing.T) {
	m := newMap(t, "m")
	m.Put([]byte("only"), []byte("value"))

	proof := m.GetProof([]byte("only"))
	checked, err := proof.Check(path.HashedKey{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if checked.Hash != m.ObjectHash() {
		t.Fatalf("checked hash %x != map hash %x", checked.Hash, m.ObjectHash())
	}
	if len(checked.Entries) != 1 || checked.Entries[0].Missing {
		t.Fatalf("Entries = %+v, want one present entry", checked.Entries)
	}
}

func TestAbsentKeyProofOverEmptyMap(t *testing.T) {
	m := newMap(t, "m")
	proof := m.GetProof([]byte("nope"))
	checked, err := proof.Check(path.HashedKey{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if checked.Hash != m.ObjectHash() {
		t.Fatalf("checked hash %x != map hash %x", checked.Hash, m.ObjectHash())
	}
	if len(checked.Entries) != 1 || !checked.Entries[0].Missing {
		t.Fatalf("Entries = %+v, want one missing entry", checked.Entries)
	}
}

func TestMultiProofPresentAndAbsentKeys(t *testing.T) {
	m := newMap(t, "m")
	present := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	for i, k := range present {
		m.Put([]byte(k), []byte(fmt.Sprintf("v%d", i)))
	}

	requested := [][]byte{
		[]byte("alpha"),
		[]byte("gamma"),
		[]byte("not-there"),
		[]byte("also-missing"),
	}
	proof := m.GetMultiProof(requested)
	checked, err := proof.Check(path.HashedKey{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if checked.Hash != m.ObjectHash() {
		t.Fatalf("checked hash %x != map hash %x", checked.Hash, m.ObjectHash())
	}
	if len(checked.Entries) != len(requested) {
		t.Fatalf("Entries = %d, want %d", len(checked.Entries), len(requested))
	}

	byKey := make(map[string]Entry)
	for _, e := range checked.Entries {
		byKey[string(e.Key)] = e
	}
	for _, k := range []string{"alpha", "gamma"} {
		e, ok := byKey[k]
		if !ok || e.Missing {
			t.Fatalf("expected %q present, got %+v", k, e)
		}
	}
	for _, k := range []string{"not-there", "also-missing"} {
		e, ok := byKey[k]
		if !ok || !e.Missing {
			t.Fatalf("expected %q missing, got %+v", k, e)
		}
	}
}

func TestTamperedProofEntryFailsVerification(t *testing.T) {
	m := newMap(t, "m")
	for i, k := range []string{"a", "b", "c", "d"} {
		m.Put([]byte(k), []byte(fmt.Sprintf("v%d", i)))
	}
	proof := m.GetProof([]byte("b"))
	proof.Entries[0].Value = []byte("tampered")

	checked, err := proof.Check(path.HashedKey{})
	if err != nil {
		t.Fatalf("Check returned a structural error for tampered data: %v", err)
	}
	if checked.Hash == m.ObjectHash() {
		t.Fatal("tampered proof must not reproduce the real ObjectHash")
	}
}

func TestDuplicatePathRejected(t *testing.T) {
	m := newMap(t, "m")
	m.Put([]byte("a"), []byte("1"))
	m.Put([]byte("b"), []byte("2"))

	proof := m.GetProof([]byte("a"))
	proof.Proof = append(proof.Proof, PathHash{Path: path.HashedKey{}.Path([]byte("a")), Hash: proof.Proof[0].Hash})

	if _, err := proof.Check(path.HashedKey{}); err == nil {
		t.Fatal("expected an error for a duplicated path")
	}
}

func TestLargerMapMultiProof(t *testing.T) {
	m := newMap(t, "m")
	var keys [][]byte
	for i := 0; i < 64; i++ {
		k := []byte(fmt.Sprintf("key-%03d", i))
		keys = append(keys, k)
		m.Put(k, []byte(fmt.Sprintf("val-%03d", i)))
	}

	var requested [][]byte
	for i := 0; i < 64; i += 7 {
		requested = append(requested, keys[i])
	}
	requested = append(requested, []byte("key-999"))

	proof := m.GetMultiProof(requested)
	checked, err := proof.Check(path.HashedKey{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if checked.Hash != m.ObjectHash() {
		t.Fatalf("checked hash %x != map hash %x", checked.Hash, m.ObjectHash())
	}
}
