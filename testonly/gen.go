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

// Package testonly provides deterministic data generators and fuzz
// harnesses shared by the storage core's test suites. Nothing here is
// imported by non-test code.
package testonly

import (
	"encoding/binary"
	"fmt"
)

// Entries returns n distinct, deterministic leaf values suitable for
// appending to a ProofList, in append order.
func Entries(n uint64) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("entry-%d", i))
	}
	return out
}

// KVPairs returns n distinct, deterministic (key, value) pairs suitable
// for populating a ProofMap, ordered by generation index (not trie order).
func KVPairs(n int) (keys, values [][]byte) {
	keys = make([][]byte, n)
	values = make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("key-%04d", i))
		values[i] = []byte(fmt.Sprintf("value-%04d", i))
	}
	return keys, values
}

// Permutation returns a deterministic permutation of [0, n) derived from
// seed, using a Fisher-Yates shuffle driven by a small xorshift PRNG. It
// is independent of math/rand's seed so fuzz inputs reproduce exactly
// across Go versions.
func Permutation(n int, seed uint64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	state := seed | 1
	next := func() uint64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return state
	}
	for i := n - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RawKeyBytes derives a deterministic 32-byte path.RawKey-shaped key from
// an index, for exercising the RawKey policy without going through
// HashedKey's SHA-256 step.
func RawKeyBytes(i uint64) []byte {
	var b [32]byte
	binary.BigEndian.PutUint64(b[24:], i)
	return b[:]
}
