// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package trie is a stand-in for component A, the Authenticated KV Store.
// The real Merkle-Patricia trie library is out of scope for this module (see
// spec §1/§6) and ships no importable source in this module's reference
// pack, so this package provides the narrowest implementation that
// satisfies the component-A contract (get/insert/remove/root/commit) without
// claiming Ethereum mainnet MPT wire-format compatibility. See DESIGN.md.
package trie

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Store is the Authenticated KV Store contract (component A).
type Store interface {
	Get(key []byte) ([]byte, bool)
	Insert(key, value []byte)
	Remove(key []byte)
	Root() common.Hash
	Commit() common.Hash
}

// EmptyRoot is the well-known root of a SimpleTrie holding no entries.
var EmptyRoot = common.Hash{}

// SimpleTrie is a sorted-key Merkle tree keyed by 32-byte keys.
// Leaves are keccak256(key || value); internal nodes are keccak256(left ||
// right); an odd node at any level is carried up unhashed. Root/Commit
// rebuild the tree from the live key set, which is adequate for this
// module's single-threaded, per-transaction usage pattern and keeps the
// implementation small and auditable rather than disk-backed and
// incremental like a production MPT.
type SimpleTrie struct {
	data    map[string][]byte
	root    common.Hash
	rootSet bool
}

// New returns an empty SimpleTrie.
func New() *SimpleTrie {
	return &SimpleTrie{data: make(map[string][]byte)}
}

// Copy returns a deep, independent copy of t.
func (t *SimpleTrie) Copy() *SimpleTrie {
	cpy := &SimpleTrie{data: make(map[string][]byte, len(t.data)), root: t.root, rootSet: t.rootSet}
	for k, v := range t.data {
		cpy.data[k] = common.CopyBytes(v)
	}
	return cpy
}

// Get returns the value stored for key, if any.
func (t *SimpleTrie) Get(key []byte) ([]byte, bool) {
	v, ok := t.data[string(key)]
	return v, ok
}

// Insert writes key => value. An empty value is equivalent to Remove, since
// storage zero-elision (spec §3/§9) requires that writing zero removes the
// key rather than persisting a zero entry.
func (t *SimpleTrie) Insert(key, value []byte) {
	if len(value) == 0 {
		t.Remove(key)
		return
	}
	t.data[string(key)] = common.CopyBytes(value)
	t.rootSet = false
}

// Remove deletes key, if present.
func (t *SimpleTrie) Remove(key []byte) {
	if _, ok := t.data[string(key)]; ok {
		delete(t.data, string(key))
		t.rootSet = false
	}
}

// Root returns the current authenticated root, recomputing it if dirty.
func (t *SimpleTrie) Root() common.Hash {
	if t.rootSet {
		return t.root
	}
	t.root = t.computeRoot()
	t.rootSet = true
	return t.root
}

// Commit finalizes pending writes and returns the new root. For SimpleTrie
// this is equivalent to Root: there is no separate staging/flush step
// because the whole tree lives in memory and is rebuilt on demand.
func (t *SimpleTrie) Commit() common.Hash {
	return t.Root()
}

func (t *SimpleTrie) computeRoot() common.Hash {
	if len(t.data) == 0 {
		return common.Hash{}
	}
	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	level := make([]common.Hash, len(keys))
	for i, k := range keys {
		level[i] = crypto.Keccak256Hash([]byte(k), t.data[k])
	}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, crypto.Keccak256Hash(level[i].Bytes(), level[i+1].Bytes()))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}
