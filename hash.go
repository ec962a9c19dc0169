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

package merkledb

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Size is the byte length of a Hash.
const Size = sha256.Size

// Hash is a 32-byte digest. The zero Hash is the "empty" root used by
// empty ProofList and ProofMap indices.
type Hash [Size]byte

// ZeroHash is the all-zero digest used as the root of an empty index.
var ZeroHash Hash

// Domain-separation tags. Every hash computed by this module is a SHA-256
// of one of these single-byte tags followed by tag-specific content; no two
// tags may collide, and all five must be used consistently across a single
// deployment (see SPEC_FULL.md section 6.3 for the numeric assignment used
// by the worked examples in section 8).
//
// ListBranchNode covers both two-child and solitary-left-child list nodes;
// MapNode covers both a single-entry map's root and a map's object hash.
// The two uses of each tag never collide because SHA-256 includes the
// message length in its padding, and the two uses always differ in the
// number of bytes hashed after the tag.
const (
	tagBlob           byte = 0x00
	tagListBranchNode byte = 0x01
	tagListNode       byte = 0x02
	tagMapBranchNode  byte = 0x03
	tagMapNode        byte = 0x04
)

// Bytes returns h as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// String renders h as lowercase hex.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Compare returns -1, 0 or 1 as h is less than, equal to, or greater than
// other, comparing lexicographically by byte.
func (h Hash) Compare(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MarshalJSON renders h as a hex string, matching the proof encodings in
// SPEC_FULL.md section 6.4.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses a hex string produced by MarshalJSON.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("merkledb: invalid hash hex %q: %w", s, err)
	}
	if len(b) != Size {
		return fmt.Errorf("merkledb: hash has %d bytes, want %d", len(b), Size)
	}
	copy(h[:], b)
	return nil
}

func hashOf(tag byte, parts ...[]byte) Hash {
	h := sha256.New()
	h.Write([]byte{tag})
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashLeaf returns the leaf hash of value, used identically by ProofList
// elements and ProofMap values.
func HashLeaf(value []byte) Hash {
	return hashOf(tagBlob, value)
}

// HashListBranch returns the hash of a ProofList internal node with two
// children.
func HashListBranch(left, right Hash) Hash {
	return hashOf(tagListBranchNode, left[:], right[:])
}

// HashListSingleChild returns the hash of a ProofList internal node whose
// right child is absent (a solitary left child on the tree's right spine).
func HashListSingleChild(left Hash) Hash {
	return hashOf(tagListBranchNode, left[:])
}

// HashListRoot returns the object hash of a ProofList with the given
// length and Merkle root.
func HashListRoot(length uint64, root Hash) Hash {
	var lenBytes [8]byte
	binary.LittleEndian.PutUint64(lenBytes[:], length)
	return hashOf(tagListNode, lenBytes[:], root[:])
}

// HashMapBranch returns the hash of a ProofMap branch node from the hashes
// of its two children, ordered left then right.
func HashMapBranch(left, right Hash) Hash {
	return hashOf(tagMapBranchNode, left[:], right[:])
}

// HashMapSingleEntry returns the root hash of a ProofMap holding exactly
// one entry, given the compressed form of that entry's path and its leaf
// hash.
func HashMapSingleEntry(compressedPath []byte, leafHash Hash) Hash {
	return hashOf(tagMapNode, compressedPath, leafHash[:])
}

// HashMapRoot returns the object hash of a ProofMap given its root hash
// (ZeroHash for an empty map).
func HashMapRoot(root Hash) Hash {
	return hashOf(tagMapNode, root[:])
}
