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
	"errors"
	"sort"

	"github.com/authentidb/merkledb"
	"github.com/authentidb/merkledb/path"
)

// Errors returned by MapProof.Check. They classify why a proof's shape is
// malformed; none of them imply the proof's claimed root is wrong, only
// that it could not be reconstructed at all.
var (
	ErrNonTerminalNode = errors.New("proofmap: proof path is a prefix of a missing entry's key path")
	ErrMalformedEntry  = errors.New("proofmap: proof path does not start at bit 0")
	ErrDuplicatePath   = errors.New("proofmap: proof contains the same path twice")
	ErrInvalidOrdering = errors.New("proofmap: proof pairs are not sorted by path")
	ErrEmbeddedPaths   = errors.New("proofmap: one proof path is a prefix of another")
)

// Checked is the result of successfully reconstructing a MapProof: the
// present/missing entries it vouches for, and the root hash that must be
// compared against a separately trusted value.
type Checked struct {
	Entries []Entry
	Hash    merkledb.Hash
}

type pair struct {
	p path.ProofPath
	h merkledb.Hash
}

// Check reconstructs p's claimed root hash from its entries and witness
// paths alone, without trusting any externally supplied root or touching
// storage. Callers must compare the returned Hash against a root obtained
// from a trusted source before trusting Entries. keyPath must be the same
// key-to-path policy the map was opened with.
func (p MapProof) Check(keyPath path.ToProofPath) (Checked, error) {
	var pairs []pair
	for _, w := range p.Proof {
		if w.Path.Start() != 0 {
			return Checked{}, ErrMalformedEntry
		}
		pairs = append(pairs, pair{p: w.Path, h: w.Hash})
	}
	for _, e := range p.Entries {
		if e.Missing {
			continue
		}
		kp := keyPath.Path(e.Key)
		pairs = append(pairs, pair{p: kp, h: merkledb.HashLeaf(e.Value)})
	}

	if len(pairs) == 0 {
		return Checked{Entries: p.Entries, Hash: merkledb.HashMapRoot(merkledb.ZeroHash)}, nil
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p.Compare(pairs[j].p) < 0 })
	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1].p, pairs[i].p
		if prev.Equal(cur) {
			return Checked{}, ErrDuplicatePath
		}
		if prev.Compare(cur) > 0 {
			return Checked{}, ErrInvalidOrdering
		}
		if prev.Len() <= cur.Len() && prev.CommonPrefixLen(cur) >= prev.Len() {
			return Checked{}, ErrEmbeddedPaths
		}
	}
	for i := 1; i < len(p.Proof); i++ {
		if p.Proof[i-1].Path.Compare(p.Proof[i].Path) > 0 {
			return Checked{}, ErrInvalidOrdering
		}
	}
	for _, e := range p.Entries {
		if !e.Missing {
			continue
		}
		kp := keyPath.Path(e.Key)
		for _, pr := range pairs {
			if pr.p.CommonPrefixLen(kp) >= pr.p.Len() {
				return Checked{}, ErrNonTerminalNode
			}
		}
	}

	root, err := reduceRange(pairs, 0, len(pairs))
	if err != nil {
		return Checked{}, err
	}

	var rootHash merkledb.Hash
	if len(pairs) == 1 && pairs[0].p.IsLeaf() {
		rootHash = merkledb.HashMapSingleEntry(pairs[0].p.Compress(), pairs[0].h)
	} else {
		rootHash = root
	}

	return Checked{Entries: p.Entries, Hash: merkledb.HashMapRoot(rootHash)}, nil
}

// reduceRange combines pairs[lo:hi], a run of trie-order-sorted pairs that
// together span exactly one subtree, into that subtree's hash.
//
// Because a ProofMap edge can span many bits (it is a Patricia trie, not a
// plain binary trie), the split point between a node's left and right
// subtrees cannot be found by incrementing a bit depth one at a time: two
// adjacent pairs sorted by trie order diverge at CommonPrefixLen(p, q),
// the depth of their lowest common branch ancestor, which can be any bit
// position. The branch closest to the root across the whole range is the
// one whose two neighbouring pairs diverge at the SHALLOWEST depth (the
// smallest CommonPrefixLen among all adjacent pairs in the range); that
// divergence point is exactly where the range must be split into its left
// and right subtrees, and the same rule applies recursively within each
// side. This is a divide-and-conquer alternative to reconstructing the
// trie with an explicit merge stack; it visits the same branch points.
func reduceRange(pairs []pair, lo, hi int) (merkledb.Hash, error) {
	if hi-lo == 1 {
		return pairs[lo].h, nil
	}

	splitAt := lo
	minDepth := pairs[lo].p.CommonPrefixLen(pairs[lo+1].p)
	for i := lo + 1; i < hi-1; i++ {
		d := pairs[i].p.CommonPrefixLen(pairs[i+1].p)
		if d < minDepth {
			minDepth = d
			splitAt = i
		}
	}

	leftHash, err := reduceRange(pairs, lo, splitAt+1)
	if err != nil {
		return merkledb.Hash{}, err
	}
	rightHash, err := reduceRange(pairs, splitAt+1, hi)
	if err != nil {
		return merkledb.Hash{}, err
	}
	return merkledb.HashMapBranch(leftHash, rightHash), nil
}

// ErrRootMismatch is returned by CheckAgainstHash when a structurally
// valid proof reconstructs to a hash other than the one the caller
// trusts.
var ErrRootMismatch = errors.New("proofmap: reconstructed hash does not match the expected root")

// CheckAgainstHash is Check followed by a byte-equality comparison
// against expected, the trusted root (for example one obtained from a
// signed checkpoint). It is the entry point most verifiers should use.
func (p MapProof) CheckAgainstHash(keyPath path.ToProofPath, expected merkledb.Hash) (Checked, error) {
	checked, err := p.Check(keyPath)
	if err != nil {
		return Checked{}, err
	}
	if checked.Hash != expected {
		return Checked{}, ErrRootMismatch
	}
	return checked, nil
}
