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
	"errors"

	"github.com/authentidb/merkledb"
)

// Errors returned by ListProof.Check. They classify why a proof is
// malformed; none of them imply the proof's claimed root is wrong, only
// that its shape could not be reconstructed at all.
var (
	ErrUnexpectedLeaf   = errors.New("prooflist: unexpected leaf hash or out-of-range entry")
	ErrUnexpectedBranch = errors.New("prooflist: proof hash at position outside the tree")
	ErrUnordered        = errors.New("prooflist: entries are not a contiguous ascending range")
	ErrRedundantHash    = errors.New("prooflist: proof supplies a hash the verifier did not need")
	ErrMissingHash      = errors.New("prooflist: proof omits a hash required to reconstruct the root")
	ErrNonEmptyProof    = errors.New("prooflist: non-empty proof for an empty list")
)

// Checked is the result of successfully reconstructing a ListProof: the
// entries it vouches for, and the ObjectHash that must be compared against
// a separately trusted root.
type Checked struct {
	Entries []Entry
	Hash    merkledb.Hash
}

type heightIndex struct {
	height uint8
	index  uint64
}

// Check reconstructs p's claimed ObjectHash from its entries and proof
// hashes alone, without trusting any externally supplied root. Callers
// must compare the returned Hash against a root obtained from a trusted
// source (for example a signed checkpoint) before trusting Entries.
//
// Check never contacts storage: it is a pure function of p, matching the
// verifier side of component C6.
func (p ListProof) Check() (Checked, error) {
	if p.Length == 0 {
		if len(p.Entries) != 0 || len(p.ProofHashes) != 0 {
			return Checked{}, ErrNonEmptyProof
		}
		return Checked{Hash: merkledb.HashListRoot(0, merkledb.ZeroHash)}, nil
	}

	height := treeHeight(p.Length)

	byHeight := make(map[uint8]map[uint64]merkledb.Hash)
	seen := make(map[heightIndex]bool)
	for _, ph := range p.ProofHashes {
		if ph.Height == 0 {
			return Checked{}, ErrUnexpectedLeaf
		}
		if int(ph.Height) > height || (int(ph.Height) == height && len(p.Entries) > 0) {
			return Checked{}, ErrUnexpectedBranch
		}
		if ph.Index > lastIndexAtHeight(p.Length, int(ph.Height)) {
			return Checked{}, ErrUnexpectedBranch
		}
		key := heightIndex{ph.Height, ph.Index}
		if seen[key] {
			return Checked{}, ErrRedundantHash
		}
		seen[key] = true
		m := byHeight[ph.Height]
		if m == nil {
			m = make(map[uint64]merkledb.Hash)
			byHeight[ph.Height] = m
		}
		m[ph.Index] = ph.Hash
	}

	used := make(map[heightIndex]bool)
	takeHash := func(h uint8, idx uint64) (merkledb.Hash, bool) {
		m := byHeight[h]
		if m == nil {
			return merkledb.Hash{}, false
		}
		v, ok := m[idx]
		if ok {
			used[heightIndex{h, idx}] = true
		}
		return v, ok
	}

	if len(p.Entries) == 0 {
		root, ok := takeHash(uint8(height), 0)
		if !ok {
			return Checked{}, ErrMissingHash
		}
		if len(p.ProofHashes) != 1 {
			return Checked{}, ErrRedundantHash
		}
		return Checked{Hash: merkledb.HashListRoot(p.Length, root)}, nil
	}

	for i, e := range p.Entries {
		if e.Index >= p.Length {
			return Checked{}, ErrUnexpectedLeaf
		}
		if i > 0 && e.Index != p.Entries[i-1].Index+1 {
			return Checked{}, ErrUnordered
		}
	}

	lo, hi := p.Entries[0].Index, p.Entries[len(p.Entries)-1].Index+1

	current := make(map[uint64]merkledb.Hash, len(p.Entries))
	for _, e := range p.Entries {
		if _, ok := takeHash(1, e.Index); ok {
			return Checked{}, ErrRedundantHash
		}
		current[e.Index] = merkledb.HashLeaf(e.Value)
	}

	for h := 1; h < height; h++ {
		if lo%2 == 1 {
			sib := lo - 1
			sh, ok := takeHash(uint8(h), sib)
			if !ok {
				return Checked{}, ErrMissingHash
			}
			current[sib] = sh
		}
		last := lastIndexAtHeight(p.Length, h)
		if (hi-1)%2 == 0 && hi <= last {
			sh, ok := takeHash(uint8(h), hi)
			if !ok {
				return Checked{}, ErrMissingHash
			}
			current[hi] = sh
		}

		loEven := lo - lo%2
		hiCeil := hi + hi%2
		next := make(map[uint64]merkledb.Hash)
		for idx := loEven; idx < hiCeil; idx += 2 {
			left, lok := current[idx]
			if !lok {
				return Checked{}, ErrMissingHash
			}
			right, rok := current[idx+1]
			parent := idx / 2
			if rok {
				next[parent] = merkledb.HashListBranch(left, right)
			} else {
				next[parent] = merkledb.HashListSingleChild(left)
			}
		}
		current = next
		lo, hi = lo/2, (hi+1)/2
	}

	for key := range seen {
		if !used[key] {
			return Checked{}, ErrRedundantHash
		}
	}

	root, ok := current[0]
	if !ok {
		return Checked{}, ErrMissingHash
	}
	return Checked{Entries: p.Entries, Hash: merkledb.HashListRoot(p.Length, root)}, nil
}

// HashOps returns 2*(b-a) + len(ProofHashes) - 1 for a proof over a
// non-empty entry range [a, b), and len(ProofHashes) when Entries is
// empty, letting a caller reject implausibly expensive proofs before
// running them: one hash_leaf per entry plus one two-child merge per
// pairing of the entry and proof hashes. Single-child hashes on the
// tree's right spine and the final list-root hash are not counted, so
// Check can perform more hash computations than HashOps reports.
func (p ListProof) HashOps() int {
	if len(p.Entries) == 0 {
		return len(p.ProofHashes)
	}
	span := len(p.Entries)
	return 2*span + len(p.ProofHashes) - 1
}

// ErrRootMismatch is returned by CheckAgainstHash when a structurally
// valid proof reconstructs to a hash other than the one the caller
// trusts.
var ErrRootMismatch = errors.New("prooflist: reconstructed hash does not match the expected root")

// CheckAgainstHash is Check followed by a byte-equality comparison
// against expected, the trusted root (for example one obtained from a
// signed checkpoint). It is the entry point most verifiers should use.
func (p ListProof) CheckAgainstHash(expected merkledb.Hash) (Checked, error) {
	checked, err := p.Check()
	if err != nil {
		return Checked{}, err
	}
	if checked.Hash != expected {
		return Checked{}, ErrRootMismatch
	}
	return checked, nil
}
