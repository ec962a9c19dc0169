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

package store

// ScopedView wraps any View, namespacing every key it touches by a name so
// that several indices can safely share one underlying View (as the Pool's
// metadata records and a MemView-backed CLI invocation both need to).
// LevelView implements the same scoping directly against goleveldb for
// performance; ScopedView is the backend-agnostic equivalent used wherever
// the underlying View type is not already namespace-aware.
type ScopedView struct {
	base   View
	prefix []byte
}

// NewScopedView returns a View over base whose keys are all namespaced by
// name.
func NewScopedView(base View, name string) *ScopedView {
	return &ScopedView{base: base, prefix: append([]byte(name), 0)}
}

func (v *ScopedView) fullKey(key []byte) []byte {
	out := make([]byte, 0, len(v.prefix)+len(key))
	out = append(out, v.prefix...)
	return append(out, key...)
}

// Get implements View.
func (v *ScopedView) Get(key []byte) ([]byte, bool) { return v.base.Get(v.fullKey(key)) }

// Contains implements View.
func (v *ScopedView) Contains(key []byte) bool { return v.base.Contains(v.fullKey(key)) }

// Put implements View.
func (v *ScopedView) Put(key, value []byte) { v.base.Put(v.fullKey(key), value) }

// Remove implements View.
func (v *ScopedView) Remove(key []byte) { v.base.Remove(v.fullKey(key)) }

// Iterator implements View.
func (v *ScopedView) Iterator(prefix []byte) Iterator {
	return &scopedIterator{it: v.base.Iterator(v.fullKey(prefix)), prefixLen: len(v.prefix)}
}

type scopedIterator struct {
	it        Iterator
	prefixLen int
}

func (it *scopedIterator) Next() bool    { return it.it.Next() }
func (it *scopedIterator) Key() []byte   { return it.it.Key()[it.prefixLen:] }
func (it *scopedIterator) Value() []byte { return it.it.Value() }
func (it *scopedIterator) Close() error  { return it.it.Close() }
