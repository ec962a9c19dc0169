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

import (
	"bytes"
	"sort"
)

// MemView is an in-memory View backed by a sorted key index. It is the
// default view for tests, the CLI, and any short-lived computation that
// does not need to survive a process restart.
type MemView struct {
	keys   [][]byte
	values map[string][]byte
}

// NewMemView returns an empty MemView.
func NewMemView() *MemView {
	return &MemView{values: make(map[string][]byte)}
}

func (v *MemView) search(key []byte) int {
	return sort.Search(len(v.keys), func(i int) bool {
		return bytes.Compare(v.keys[i], key) >= 0
	})
}

// Get implements View.
func (v *MemView) Get(key []byte) ([]byte, bool) {
	val, ok := v.values[string(key)]
	return val, ok
}

// Contains implements View.
func (v *MemView) Contains(key []byte) bool {
	_, ok := v.values[string(key)]
	return ok
}

// Put implements View.
func (v *MemView) Put(key, value []byte) {
	k := string(key)
	if _, exists := v.values[k]; !exists {
		i := v.search(key)
		stored := append([]byte(nil), key...)
		v.keys = append(v.keys, nil)
		copy(v.keys[i+1:], v.keys[i:])
		v.keys[i] = stored
	}
	v.values[k] = append([]byte(nil), value...)
}

// Remove implements View.
func (v *MemView) Remove(key []byte) {
	k := string(key)
	if _, exists := v.values[k]; !exists {
		return
	}
	delete(v.values, k)
	i := v.search(key)
	v.keys = append(v.keys[:i], v.keys[i+1:]...)
}

// Iterator implements View.
func (v *MemView) Iterator(prefix []byte) Iterator {
	i := v.search(prefix)
	return &memIterator{view: v, prefix: append([]byte(nil), prefix...), next: i, started: false}
}

type memIterator struct {
	view    *MemView
	prefix  []byte
	next    int
	started bool
	key     []byte
}

func (it *memIterator) Next() bool {
	if it.started {
		it.next++
	}
	it.started = true
	if it.next >= len(it.view.keys) {
		return false
	}
	k := it.view.keys[it.next]
	if !bytes.HasPrefix(k, it.prefix) {
		return false
	}
	it.key = k
	return true
}

func (it *memIterator) Key() []byte   { return it.key }
func (it *memIterator) Value() []byte { v, _ := it.view.Get(it.key); return v }
func (it *memIterator) Close() error  { return nil }
