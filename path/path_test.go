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

package path

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func randomKey(r *rand.Rand) [KeySize]byte {
	var k [KeySize]byte
	r.Read(k[:])
	return k
}

func TestLeafPathLength(t *testing.T) {
	var k [KeySize]byte
	k[0] = 0xFF
	p := New(k)
	if !p.IsLeaf() {
		t.Fatal("expected leaf path")
	}
	if got := p.Len(); got != KeyBits {
		t.Fatalf("Len() = %d, want %d", got, KeyBits)
	}
}

func TestPrefixRejectsFullLength(t *testing.T) {
	var k [KeySize]byte
	p := New(k)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic forming a 256-bit branch prefix")
		}
	}()
	p.Prefix(KeyBits)
}

func TestPrefixSuffixRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	k := randomKey(r)
	p := New(k)

	prefix := p.Prefix(10)
	if prefix.IsLeaf() {
		t.Fatal("Prefix should produce a branch path")
	}
	if got := prefix.Len(); got != 10 {
		t.Fatalf("Prefix(10).Len() = %d, want 10", got)
	}

	suffix := p.Suffix(10)
	if got := suffix.Len(); got != KeyBits-10 {
		t.Fatalf("Suffix(10).Len() = %d, want %d", got, KeyBits-10)
	}
	for i := uint16(0); i < suffix.Len(); i++ {
		if suffix.Bit(i) != p.Bit(10+i) {
			t.Fatalf("Suffix bit %d mismatch", i)
		}
	}
}

func TestCommonPrefixLen(t *testing.T) {
	var a, b [KeySize]byte
	a[0] = 0b10110000
	b[0] = 0b10100000
	pa, pb := New(a), New(b)
	// Bits are read LSB-first within each byte, so the leading zero bits
	// of the byte (bits 0..3) match, and the first divergence is at bit 4
	// (1 in a, 0 in b).
	got := pa.CommonPrefixLen(pb)
	want := pa.MatchLen(pb, 0)
	if got != want {
		t.Fatalf("CommonPrefixLen = %d, want %d (computed via MatchLen)", got, want)
	}
}

func TestCommonPrefixLenDifferentStarts(t *testing.T) {
	var k [KeySize]byte
	p := New(k)
	a := p.Suffix(4)
	b := p.Suffix(8)
	if got := a.CommonPrefixLen(b); got != 0 {
		t.Fatalf("CommonPrefixLen across different starts = %d, want 0", got)
	}
}

func TestEqual(t *testing.T) {
	var k [KeySize]byte
	k[0] = 0x42
	a := New(k)
	b := New(k)
	if !a.Equal(b) {
		t.Fatal("identical leaf paths should be equal")
	}
	c := a.Prefix(8)
	d := a.Prefix(8)
	if !c.Equal(d) {
		t.Fatal("identical branch prefixes should be equal")
	}
	if a.Equal(c) {
		t.Fatal("a leaf and a proper prefix of it should not be equal")
	}
}

func TestCompareOrdering(t *testing.T) {
	var a, b [KeySize]byte
	a[0] = 0x00
	b[0] = 0x01
	pa, pb := New(a), New(b)
	if pa.Compare(pb) >= 0 {
		t.Fatalf("expected pa < pb")
	}
	if pb.Compare(pa) <= 0 {
		t.Fatalf("expected pb > pa")
	}
	if pa.Compare(pa) != 0 {
		t.Fatalf("expected pa == pa")
	}
}

func TestComparePanicsOnNonZeroStart(t *testing.T) {
	var k [KeySize]byte
	p := New(k).Suffix(4)
	q := New(k)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic comparing a suffixed path")
		}
	}()
	p.Compare(q)
}

func TestBytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		k := randomKey(r)
		p := New(k)
		if i%2 == 0 {
			p = p.Prefix(uint16(1 + r.Intn(254)))
		}
		encoded := p.Bytes()
		decoded, err := Read(encoded[:])
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !p.Equal(decoded) {
			t.Fatalf("round trip mismatch: %+v != %+v", p, decoded)
		}
		if diff := cmp.Diff(encoded, decoded.Bytes()); diff != "" {
			t.Fatalf("re-encoding mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		k := randomKey(r)
		p := New(k)
		if i%2 == 0 {
			p = p.Prefix(uint16(1 + r.Intn(254)))
		}
		compressed := p.Compress()
		decoded, n, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if n != len(compressed) {
			t.Fatalf("Decompress consumed %d bytes, want %d", n, len(compressed))
		}
		if !p.Equal(decoded) {
			t.Fatalf("compress/decompress round trip mismatch")
		}
		if diff := cmp.Diff(compressed, decoded.Compress()); diff != "" {
			t.Fatalf("re-compression mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var k [KeySize]byte
	k[0] = 0xAB
	cases := []ProofPath{
		New(k),
		New(k).Prefix(5),
		New(k).Prefix(255),
	}
	for _, p := range cases {
		data, err := p.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON: %v", err)
		}
		var got ProofPath
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON: %v", err)
		}
		if !p.Equal(got) {
			t.Fatalf("JSON round trip mismatch for %+v", p)
		}
	}
}

func TestHashedKeyVsRawKey(t *testing.T) {
	key := []byte("arbitrary length key, not 32 bytes")
	hp := HashedKey{}.Path(key)
	if !hp.IsLeaf() {
		t.Fatal("HashedKey.Path should produce a leaf path")
	}

	var raw [32]byte
	raw[0] = 7
	rp := RawKey{}.Path(raw[:])
	want := New(raw)
	if !rp.Equal(want) {
		t.Fatal("RawKey.Path should use the key bytes verbatim")
	}
}

func TestRawKeyPanicsOnWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-32-byte RawKey input")
		}
	}()
	RawKey{}.Path([]byte("too short"))
}
