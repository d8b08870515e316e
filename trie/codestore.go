package trie

import "github.com/ethereum/go-ethereum/common"

// CodeStore is the flat, content-addressed blob store backing "Code blob"
// (spec §3): immutable bytes keyed by their own keccak256 hash. Unlike
// SimpleTrie it carries no authentication of its own -- the key already is
// the hash of the value, so a second Merkle layer over it would be
// redundant.
type CodeStore struct {
	blobs map[common.Hash][]byte
}

// NewCodeStore returns an empty CodeStore.
func NewCodeStore() *CodeStore {
	return &CodeStore{blobs: make(map[common.Hash][]byte)}
}

// Get returns the code blob for hash, if present.
func (c *CodeStore) Get(hash common.Hash) ([]byte, bool) {
	b, ok := c.blobs[hash]
	return b, ok
}

// Put stores code under hash; it does not check that hash is the code's
// keccak256.
func (c *CodeStore) Put(hash common.Hash, code []byte) {
	c.blobs[hash] = common.CopyBytes(code)
}
