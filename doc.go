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

// Package merkledb provides the domain-separated hashing primitives shared
// by the ProofList and ProofMap authenticated index types implemented in
// the prooflist and proofmap subpackages.
//
// The indices themselves never hash bytes directly: every hash in this
// module passes through one of the functions in this package, so that a
// leaf hash, an internal node hash and an index's top-level object hash can
// never collide with one another even if their raw inputs happen to match.
package merkledb
