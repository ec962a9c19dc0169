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

// Package checkpoint signs and verifies a textual attestation of an
// index's current object_hash and logical size, for publication to
// out-of-process verifiers (component C10). A checkpoint never encodes
// proof data: it is purely "this root, at this size, is what I currently
// claim", layered on top of the storage core via golang.org/x/mod/sumdb/note.
package checkpoint

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/authentidb/merkledb"
	"github.com/transparency-dev/formats/log"
	"golang.org/x/mod/sumdb/note"
)

// Errors returned by Verify when bundle cannot be authenticated or does
// not match the expected shape.
var (
	ErrMalformed      = errors.New("checkpoint: body does not match the expected line format")
	ErrOriginMismatch = errors.New("checkpoint: origin does not match the expected value")
	ErrBadHashLength  = errors.New("checkpoint: hash line decodes to the wrong length")
)

// Sign produces a signed checkpoint bundle attesting that the index named
// by origin currently has the given size and root. extra carries an
// optional caller-defined opaque blob (for example a block height or
// revision label); pass nil to omit it.
//
// The body uses log.Checkpoint's (origin, size, hash) triple as its
// logical shape, but this package frames it as its own bespoke text
// layout (SPEC_FULL.md section 6.9) rather than log.Checkpoint's own
// Marshal, because the upstream C2SP tlog-checkpoint format has no slot
// for this package's optional extra line.
func Sign(origin string, size uint64, root merkledb.Hash, signer note.Signer, extra []byte) ([]byte, error) {
	cp := log.Checkpoint{Origin: origin, Size: size, Hash: root.Bytes()}
	body := marshalBody(cp, extra)
	return note.Sign(&note.Note{Text: body}, signer)
}

func marshalBody(cp log.Checkpoint, extra []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Merkle checkpoint\n", cp.Origin)
	fmt.Fprintf(&b, "size %d\n", cp.Size)
	fmt.Fprintf(&b, "hash %s\n", base64.StdEncoding.EncodeToString(cp.Hash))
	if extra != nil {
		fmt.Fprintf(&b, "extra %s\n", base64.StdEncoding.EncodeToString(extra))
	}
	return b.String()
}

// Verify parses and authenticates bundle against verifier, checking that
// its origin line matches origin exactly. On success it returns the
// attested size, root hash, and optional extra data.
func Verify(bundle []byte, origin string, verifier note.Verifier) (size uint64, root merkledb.Hash, extra []byte, err error) {
	n, err := note.Open(bundle, note.VerifierList(verifier))
	if err != nil {
		return 0, merkledb.Hash{}, nil, fmt.Errorf("checkpoint: %w", err)
	}
	return parseBody(n.Text, origin)
}

func parseBody(text, origin string) (uint64, merkledb.Hash, []byte, error) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) < 3 {
		return 0, merkledb.Hash{}, nil, ErrMalformed
	}
	if lines[0] != origin+" Merkle checkpoint" {
		return 0, merkledb.Hash{}, nil, ErrOriginMismatch
	}

	sizeStr, ok := strings.CutPrefix(lines[1], "size ")
	if !ok {
		return 0, merkledb.Hash{}, nil, ErrMalformed
	}
	size, err := strconv.ParseUint(sizeStr, 10, 64)
	if err != nil {
		return 0, merkledb.Hash{}, nil, fmt.Errorf("%w: size: %v", ErrMalformed, err)
	}

	hashStr, ok := strings.CutPrefix(lines[2], "hash ")
	if !ok {
		return 0, merkledb.Hash{}, nil, ErrMalformed
	}
	hashBytes, err := base64.StdEncoding.DecodeString(hashStr)
	if err != nil {
		return 0, merkledb.Hash{}, nil, fmt.Errorf("%w: hash: %v", ErrMalformed, err)
	}
	if len(hashBytes) != merkledb.Size {
		return 0, merkledb.Hash{}, nil, ErrBadHashLength
	}
	var root merkledb.Hash
	copy(root[:], hashBytes)

	var extra []byte
	if len(lines) > 3 && lines[3] != "" {
		extraStr, ok := strings.CutPrefix(lines[3], "extra ")
		if !ok {
			return 0, merkledb.Hash{}, nil, ErrMalformed
		}
		extra, err = base64.StdEncoding.DecodeString(extraStr)
		if err != nil {
			return 0, merkledb.Hash{}, nil, fmt.Errorf("%w: extra: %v", ErrMalformed, err)
		}
	}

	return size, root, extra, nil
}
