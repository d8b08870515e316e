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

package state

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/0xbundler/evmexec/core/types"
	"github.com/0xbundler/evmexec/trie"
)

// Storage is a set of storage mutations, keyed by slot.
type Storage map[common.Hash]common.Hash

// Copy returns an independent copy of s.
func (s Storage) Copy() Storage {
	cpy := make(Storage, len(s))
	for k, v := range s {
		cpy[k] = v
	}
	return cpy
}

// stateObject is the in-memory mutable view of one account (component C):
// account record fields, code, storage cache, dirty storage, and the
// pre-modification snapshot used for EIP-2200 net-gas metering.
//
// Usage pattern: obtain a state object through the World State, mutate it
// via its exported methods, and let the World State's commit pipeline flush
// dirty storage and the account record back through the trie.
type stateObject struct {
	db       *StateDB // parent World State, for EnabledExpensive timing only
	address  common.Address
	addrHash common.Hash
	data     types.StateAccount

	trie *trie.SimpleTrie // per-account storage trie, lazily opened
	code []byte           // contract bytecode, lazily loaded by code hash

	storageCache  Storage // key -> value, populated from the trie on first read
	dirtyStorage  Storage // keys written since the last commit
	originStorage Storage // pre-first-write snapshot this transaction, for SSTORE net-gas

	dirtyCode      bool
	selfDestructed bool
	deleted        bool // tombstoned: removed on next commit
	created        bool // created in the current transaction
}

// newObject creates a state object, optionally seeded from an existing
// Account Record. Passing a nil acct yields an empty, never-touched account.
func newObject(db *StateDB, address common.Address, acct *types.StateAccount) *stateObject {
	data := types.NewEmptyStateAccount()
	if acct != nil {
		data = acct
	}
	return &stateObject{
		db:            db,
		address:       address,
		addrHash:      crypto.Keccak256Hash(address[:]),
		data:          *data,
		storageCache:  make(Storage),
		dirtyStorage:  make(Storage),
		originStorage: make(Storage),
	}
}

// empty reports whether the account is EIP-161 empty.
func (s *stateObject) empty() bool {
	return s.data.Nonce == 0 && s.data.Balance.Sign() == 0 && bytes.Equal(s.data.CodeHash, types.EmptyCodeHash.Bytes())
}

// deepCopy returns an independent clone suitable for a checkpoint snapshot.
// Per the design note on state-object ownership, checkpoint frames must
// hold deep clones, never shared views, or revert correctness breaks under
// aliasing.
func (s *stateObject) deepCopy() *stateObject {
	obj := &stateObject{
		db:             s.db,
		address:        s.address,
		addrHash:       s.addrHash,
		data:           *s.data.Copy(),
		code:           s.code,
		storageCache:   s.storageCache.Copy(),
		dirtyStorage:   s.dirtyStorage.Copy(),
		originStorage:  s.originStorage.Copy(),
		dirtyCode:      s.dirtyCode,
		selfDestructed: s.selfDestructed,
		deleted:        s.deleted,
		created:        s.created,
	}
	if s.trie != nil {
		obj.trie = s.trie.Copy()
	}
	return obj
}

func (s *stateObject) getTrie() *trie.SimpleTrie {
	if s.trie == nil {
		s.trie = trie.New()
	}
	return s.trie
}

// Address returns the account's address.
func (s *stateObject) Address() common.Address { return s.address }

// Balance returns the account's current balance.
func (s *stateObject) Balance() *big.Int { return s.data.Balance }

// Nonce returns the account's current nonce.
func (s *stateObject) Nonce() uint64 { return s.data.Nonce }

// CodeHash returns the account's code hash.
func (s *stateObject) CodeHash() []byte { return s.data.CodeHash }

// Code returns the contract bytecode, fetching and caching it from the code
// store on first access if necessary.
func (s *stateObject) Code(codeDB *trie.CodeStore) []byte {
	if s.code != nil {
		return s.code
	}
	if bytes.Equal(s.data.CodeHash, types.EmptyCodeHash.Bytes()) {
		return nil
	}
	code, ok := codeDB.Get(common.BytesToHash(s.data.CodeHash))
	if !ok {
		return nil
	}
	s.code = code
	return code
}

// SetCode replaces the account's code, recomputing its hash.
func (s *stateObject) SetCode(code []byte) {
	hash := crypto.Keccak256Hash(code)
	s.code = code
	s.data.CodeHash = hash.Bytes()
	s.dirtyCode = true
}

// AddBalance adds amount to the account's balance.
func (s *stateObject) AddBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	s.data.Balance = new(big.Int).Add(s.data.Balance, amount)
}

// SubBalance removes amount from the account's balance. Returns
// ErrBalanceUnderflow if amount exceeds the current balance; the caller
// (StateDB.Transfer) is responsible for atomicity across both legs.
func (s *stateObject) SubBalance(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if s.data.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, want to subtract %s", ErrBalanceUnderflow, s.data.Balance, amount)
	}
	s.data.Balance = new(big.Int).Sub(s.data.Balance, amount)
	return nil
}

// IncrNonce increments the account's nonce by one.
func (s *stateObject) IncrNonce() {
	s.data.Nonce++
}

// SetNonce sets the account's nonce directly.
func (s *stateObject) SetNonce(nonce uint64) {
	s.data.Nonce = nonce
}

// GetState returns the current value of a storage slot, consulting the
// dirty-write cache first, then the read cache, then the trie.
func (s *stateObject) GetState(key common.Hash) common.Hash {
	if v, dirty := s.dirtyStorage[key]; dirty {
		return v
	}
	return s.GetCommittedState(key)
}

// GetCommittedState returns the trie-backed value of a slot, ignoring any
// dirty writes made in the current transaction.
func (s *stateObject) GetCommittedState(key common.Hash) common.Hash {
	if v, ok := s.storageCache[key]; ok {
		return v
	}
	if metrics.EnabledExpensive {
		defer func(start time.Time) { s.db.StorageReads += time.Since(start) }(time.Now())
	}
	raw, ok := s.getTrie().Get(key.Bytes())
	var value common.Hash
	if ok {
		value.SetBytes(raw)
	}
	s.storageCache[key] = value
	return value
}

// SetState writes value into storage slot key. Per the snapshot-on-first-
// write rule, the first write of a key in this transaction captures its
// prior value into originStorage so SSTORE net-gas metering and revert
// bookkeeping can see the pre-image.
func (s *stateObject) SetState(key, value common.Hash) {
	if _, ok := s.originStorage[key]; !ok {
		s.originStorage[key] = s.GetState(key)
	}
	s.dirtyStorage[key] = value
	s.storageCache[key] = value
}

// OriginalStorage returns the value a slot held before the first write made
// to it in the current transaction -- used by SSTORE net-gas computation
// (EIP-2200).
func (s *stateObject) OriginalStorage(key common.Hash) common.Hash {
	if v, ok := s.originStorage[key]; ok {
		return v
	}
	return s.GetCommittedState(key)
}

// kill marks the account tombstoned. Balance/nonce/code/storage are cleared
// only at commit time; within the transaction the object remains readable,
// per spec §3 ("still accessible in the scope of same transaction").
func (s *stateObject) kill() {
	s.selfDestructed = true
	s.deleted = true
}

// updateTrie flushes dirty storage slots into the account's storage trie and
// returns the new storage root. It is a no-op (other than a root lookup)
// when there is nothing dirty.
func (s *stateObject) updateTrie() common.Hash {
	if len(s.dirtyStorage) == 0 {
		return s.getTrie().Root()
	}
	// Track the amount of time wasted on updating the storage trie.
	if metrics.EnabledExpensive {
		defer func(start time.Time) { s.db.StorageUpdates += time.Since(start) }(time.Now())
	}
	tr := s.getTrie()
	for key, value := range s.dirtyStorage {
		if value == (common.Hash{}) {
			tr.Remove(key.Bytes())
			continue
		}
		tr.Insert(key.Bytes(), common.TrimLeftZeroes(value.Bytes()))
	}
	s.dirtyStorage = make(Storage)
	s.originStorage = make(Storage)
	return tr.Commit()
}
