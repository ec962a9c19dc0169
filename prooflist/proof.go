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

package prooflist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/authentidb/merkledb"
)

// Entry pairs an index with the value a range proof claims lives there.
// It marshals as the 2-element tuple [index, value] required by
// SPEC_FULL.md section 6.4, not as a {"index":,"value":} object.
type Entry struct {
	Index uint64
	Value []byte
}

// MarshalJSON renders e as [Index, Value], with Value base64-encoded the
// same way encoding/json would encode a []byte struct field.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Index, e.Value})
}

// UnmarshalJSON parses the [index, value] tuple produced by MarshalJSON,
// rejecting any tuple that is not exactly two elements long.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("prooflist: malformed entry: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("prooflist: entry tuple has %d elements, want 2", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &e.Index); err != nil {
		return fmt.Errorf("prooflist: malformed entry index: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &e.Value); err != nil {
		return fmt.Errorf("prooflist: malformed entry value: %w", err)
	}
	return nil
}

// ProofHash is one auxiliary hash a range proof supplies at a given
// (height, index) position that the verifier cannot otherwise derive from
// the Entries or from hashes it has already reconstructed.
type ProofHash struct {
	Height uint8         `json:"height"`
	Index  uint64        `json:"index"`
	Hash   merkledb.Hash `json:"hash"`
}

// ListProof is the data a prover sends to authenticate a contiguous range
// of a ProofList's entries (or, with Entries empty, just its Length)
// against a previously-trusted root hash.
type ListProof struct {
	ProofHashes []ProofHash
	Entries     []Entry
	Length      uint64
}

// wireListProof is ListProof's JSON shape per SPEC_FULL.md section 6.4:
// top-level key "proof" (not "proof_hashes"), decoded with unknown fields
// rejected.
type wireListProof struct {
	Proof   []ProofHash `json:"proof"`
	Entries []Entry     `json:"entries"`
	Length  uint64      `json:"length"`
}

// MarshalJSON renders p per SPEC_FULL.md section 6.4. Nil ProofHashes or
// Entries render as [], matching the empty-list S1 scenario rather than
// JSON null.
func (p ListProof) MarshalJSON() ([]byte, error) {
	w := wireListProof{Proof: p.ProofHashes, Entries: p.Entries, Length: p.Length}
	if w.Proof == nil {
		w.Proof = []ProofHash{}
	}
	if w.Entries == nil {
		w.Entries = []Entry{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire shape MarshalJSON produces, rejecting any
// top-level field other than "proof", "entries", and "length".
func (p *ListProof) UnmarshalJSON(data []byte) error {
	var w wireListProof
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("prooflist: decoding ListProof: %w", err)
	}
	p.ProofHashes = w.Proof
	p.Entries = w.Entries
	p.Length = w.Length
	return nil
}

// GetProof returns a proof authenticating the single element at index.
func (l *List) GetProof(index uint64) ListProof {
	return l.GetRangeProof(index, index+1)
}

// GetRangeProof returns a proof authenticating every element in the
// half-open range [start, end). It panics if the range is invalid or out
// of bounds; callers are expected to validate against Len() first.
func (l *List) GetRangeProof(start, end uint64) ListProof {
	if start >= end || end > l.length {
		panic(fmt.Sprintf("prooflist: invalid range [%d,%d) for length %d", start, end, l.length))
	}

	entries := make([]Entry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, Entry{Index: i, Value: l.Get(i)})
	}

	height := treeHeight(l.length)
	var hashes []ProofHash
	lo, hi := start, end
	for h := 1; h < height; h++ {
		last := lastIndexAtHeight(l.length, h)
		if lo%2 == 1 {
			sib := lo - 1
			hash, ok := l.readHash(uint8(h), sib)
			if ok {
				hashes = append(hashes, ProofHash{Height: uint8(h), Index: sib, Hash: hash})
			}
		}
		if (hi-1)%2 == 0 && hi <= last {
			hash, ok := l.readHash(uint8(h), hi)
			if ok {
				hashes = append(hashes, ProofHash{Height: uint8(h), Index: hi, Hash: hash})
			}
		}
		lo = lo / 2
		hi = (hi + 1) / 2
	}

	return ListProof{ProofHashes: hashes, Entries: entries, Length: l.length}
}

// GetLengthProof returns a proof that only authenticates Length, with no
// revealed entries.
func (l *List) GetLengthProof() ListProof {
	if l.length == 0 {
		return ListProof{Length: 0}
	}
	h := treeHeight(l.length)
	root, _ := l.readHash(uint8(h), 0)
	return ListProof{
		ProofHashes: []ProofHash{{Height: uint8(h), Index: 0, Hash: root}},
		Length:      l.length,
	}
}
