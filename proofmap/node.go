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

// Package proofmap implements ProofMap, a Merkle binary Patricia trie over
// 256-bit paths, together with single- and multi-key proofs and the pure
// verifier that checks one against a trusted root hash.
package proofmap

import (
	"fmt"

	"github.com/authentidb/merkledb"
	"github.com/authentidb/merkledb/path"
)

const childRecordSize = path.Size + merkledb.Size

// BranchNode is the stored record for a ProofMap internal node (component
// C3): two (child path, child hash) pairs, one per path.ChildKind. Every
// child path is an absolute path from the trie root (Start() == 0), never a
// window relative to the branch's own position; this lets it be
// serialised with path.ProofPath.Bytes() unchanged.
type BranchNode struct {
	childPath [2]path.ProofPath
	childHash [2]merkledb.Hash
}

// ChildPath returns the path of the given child.
func (b *BranchNode) ChildPath(k path.ChildKind) path.ProofPath { return b.childPath[k] }

// ChildHash returns the hash of the given child.
func (b *BranchNode) ChildHash(k path.ChildKind) merkledb.Hash { return b.childHash[k] }

// SetChild sets both the path and hash of the given child.
func (b *BranchNode) SetChild(k path.ChildKind, p path.ProofPath, h merkledb.Hash) {
	b.childPath[k] = p
	b.childHash[k] = h
}

// SetChildHash updates only the hash of the given child, leaving its path
// unchanged.
func (b *BranchNode) SetChildHash(k path.ChildKind, h merkledb.Hash) {
	b.childHash[k] = h
}

// ObjectHash returns the hash of this branch node from its two children's
// hashes, ordered Left then Right.
func (b *BranchNode) ObjectHash() merkledb.Hash {
	return merkledb.HashMapBranch(b.childHash[path.Left], b.childHash[path.Right])
}

func (b *BranchNode) toBytes() []byte {
	out := make([]byte, 0, 2*childRecordSize)
	for _, k := range [2]path.ChildKind{path.Left, path.Right} {
		pb := b.childPath[k].Bytes()
		out = append(out, pb[:]...)
		out = append(out, b.childHash[k].Bytes()...)
	}
	return out
}

func branchNodeFromBytes(data []byte) (*BranchNode, error) {
	if len(data) != 2*childRecordSize {
		return nil, fmt.Errorf("proofmap: branch record has %d bytes, want %d", len(data), 2*childRecordSize)
	}
	var b BranchNode
	for i, k := range [2]path.ChildKind{path.Left, path.Right} {
		off := i * childRecordSize
		p, err := path.Read(data[off : off+path.Size])
		if err != nil {
			return nil, fmt.Errorf("proofmap: decoding child %d path: %w", k, err)
		}
		var h merkledb.Hash
		copy(h[:], data[off+path.Size:off+childRecordSize])
		b.childPath[k] = p
		b.childHash[k] = h
	}
	return &b, nil
}
