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
	"sort"

	"github.com/authentidb/merkledb"
	"github.com/authentidb/merkledb/path"
)

// Entry is one requested key resolved against a MapProof: either the
// key's value (Missing == false) or a witness that the key is absent
// (Missing == true, Value == nil).
type Entry struct {
	Key     []byte `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// PathHash is a sibling witness supplied to let the verifier reconstruct
// the parts of the trie the requested keys did not visit.
type PathHash struct {
	Path path.ProofPath `json:"path"`
	Hash merkledb.Hash  `json:"hash"`
}

// MapProof attests to the value (or absence) of one or more keys in a
// ProofMap as of a given root hash, component C8's prover-side output.
type MapProof struct {
	Entries []Entry    `json:"entries"`
	Proof   []PathHash `json:"proof"`
}

// GetProof returns a single-key MapProof for key.
func (m *Map) GetProof(key []byte) MapProof {
	return m.GetMultiProof([][]byte{key})
}

// GetMultiProof returns a MapProof simultaneously attesting to every key
// in keys, whether present or absent.
func (m *Map) GetMultiProof(keys [][]byte) MapProof {
	type request struct {
		key []byte
		kp  path.ProofPath
	}
	reqs := make([]request, len(keys))
	for i, k := range keys {
		reqs[i] = request{key: k, kp: m.keyPath.Path(k)}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].kp.Compare(reqs[j].kp) < 0 })

	var entries []Entry
	var witnesses []PathHash

	var walk func(cur *path.ProofPath, rs []request)
	walk = func(cur *path.ProofPath, rs []request) {
		if cur == nil {
			for _, r := range rs {
				entries = append(entries, Entry{Key: r.key, Missing: true})
			}
			return
		}
		p := *cur

		agree := rs[:0:0]
		var diverge []request
		for _, r := range rs {
			if p.CommonPrefixLen(r.kp) >= p.Len() {
				agree = append(agree, r)
			} else {
				diverge = append(diverge, r)
			}
		}
		for _, r := range diverge {
			entries = append(entries, Entry{Key: r.key, Missing: true})
		}
		if len(agree) == 0 {
			if len(diverge) > 0 {
				witnesses = append(witnesses, PathHash{Path: p, Hash: m.hashOf(p)})
			}
			return
		}

		if p.IsLeaf() {
			for _, r := range agree {
				if !r.kp.Equal(p) {
					entries = append(entries, Entry{Key: r.key, Missing: true})
					continue
				}
				v, present := m.data.Get(valueKey(r.key))
				if !present {
					panic("proofmap: leaf path present without a value record")
				}
				entries = append(entries, Entry{Key: r.key, Value: v})
			}
			return
		}

		branch, ok := m.getBranch(p)
		if !ok {
			panic("proofmap: branch node missing for recorded path")
		}
		var left, right []request
		for _, r := range agree {
			if r.kp.Bit(p.Len()) == path.Left {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		leftPath := branch.ChildPath(path.Left)
		rightPath := branch.ChildPath(path.Right)
		if len(left) > 0 {
			walk(&leftPath, left)
		} else {
			witnesses = append(witnesses, PathHash{Path: leftPath, Hash: branch.ChildHash(path.Left)})
		}
		if len(right) > 0 {
			walk(&rightPath, right)
		} else {
			witnesses = append(witnesses, PathHash{Path: rightPath, Hash: branch.ChildHash(path.Right)})
		}
	}

	walk(m.root, reqs)

	sort.Slice(entries, func(i, j int) bool {
		return m.keyPath.Path(entries[i].Key).Compare(m.keyPath.Path(entries[j].Key)) < 0
	})
	sort.Slice(witnesses, func(i, j int) bool { return witnesses[i].Path.Compare(witnesses[j].Path) < 0 })

	return MapProof{Entries: entries, Proof: witnesses}
}
