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

// Package state implements the World State (component D): a mapping from
// Address to state object, a checkpoint stack permitting nested rollback
// across EVM frames, and the commit pipeline that flushes dirty accounts
// back through the authenticated KV store.
package state

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/0xbundler/evmexec/core/types"
	"github.com/0xbundler/evmexec/trie"
)

// stateEntry wraps a state object with the dirty and tombstone bits spec
// §3 assigns to the World State's entry map, not the object itself.
type stateEntry struct {
	object    *stateObject
	dirty     bool
	tombstone bool // scheduled for removal on commit
}

// StateDB is the World State (component D).
type StateDB struct {
	world   *trie.SimpleTrie
	codeDB  *trie.CodeStore
	entries map[common.Address]*stateEntry

	refund          uint64
	selfDestructSet map[common.Address]bool
	logs            []*types.Log

	checkpoints []checkpointFrame

	committedRoot common.Hash

	// StorageReads/StorageUpdates accumulate the wall-clock time spent in
	// per-account trie reads and flushes, gated by metrics.EnabledExpensive
	// the same way go-ethereum's StateDB times its own hot paths. A caller
	// that enables expensive metrics is expected to register these under
	// its own metrics.Timer and sample them periodically; this type just
	// accumulates, it doesn't register or reset.
	StorageReads   time.Duration
	StorageUpdates time.Duration
}

// New returns a fresh World State over an empty world trie and code store.
func New() *StateDB {
	return &StateDB{
		world:           trie.New(),
		codeDB:          trie.NewCodeStore(),
		entries:         make(map[common.Address]*stateEntry),
		selfDestructSet: make(map[common.Address]bool),
	}
}

func worldKey(addr common.Address) common.Hash {
	return hashAddr(addr)
}

// getOrLoad returns the live entry for addr, loading it from the world trie
// on first access if necessary. The returned entry is never nil; a
// never-seen address yields a fresh empty, non-dirty state object.
func (s *StateDB) getOrLoad(addr common.Address) *stateEntry {
	if e, ok := s.entries[addr]; ok {
		return e
	}
	var acct *types.StateAccount
	if raw, ok := s.world.Get(worldKey(addr).Bytes()); ok {
		var dec types.StateAccount
		if err := rlp.DecodeBytes(raw, &dec); err == nil {
			acct = &dec
		}
	}
	e := &stateEntry{object: newObject(s, addr, acct)}
	s.entries[addr] = e
	return e
}

// markDirty snapshots addr's pre-mutation entry into the open checkpoint (if
// any) and sets its dirty bit. Must precede every mutation.
func (s *StateDB) markDirty(addr common.Address) *stateEntry {
	s.snapshotBeforeMutation(addr)
	e := s.getOrLoad(addr)
	e.dirty = true
	return e
}

// Exist reports whether addr has an entry in the cache or the world trie.
func (s *StateDB) Exist(addr common.Address) bool {
	if e, ok := s.entries[addr]; ok {
		return !e.tombstone
	}
	_, ok := s.world.Get(worldKey(addr).Bytes())
	return ok
}

// ExistAndNotEmpty reports whether addr exists and is not EIP-161 empty.
func (s *StateDB) ExistAndNotEmpty(addr common.Address) bool {
	if !s.Exist(addr) {
		return false
	}
	return !s.getOrLoad(addr).object.empty()
}

// NewContract resets addr to a fresh account: the given balance, nonce, and
// code, with storage reinitialized to empty. Per spec §4.D this module
// mandates Petersburg semantics unconditionally -- a pre-existing storage
// trie at this address is never carried forward.
func (s *StateDB) NewContract(addr common.Address, balance *big.Int, nonce uint64, code []byte) {
	e := s.markDirty(addr)
	obj := newObject(s, addr, nil)
	obj.created = true
	obj.data.Balance = new(big.Int).Set(balance)
	obj.data.Nonce = nonce
	if len(code) > 0 {
		obj.SetCode(code)
	}
	e.object = obj
	e.tombstone = false
}

// Balance returns addr's current balance (zero for a never-seen address).
func (s *StateDB) Balance(addr common.Address) *big.Int {
	return s.getOrLoad(addr).object.Balance()
}

// Nonce returns addr's current nonce.
func (s *StateDB) Nonce(addr common.Address) uint64 {
	return s.getOrLoad(addr).object.Nonce()
}

// Code returns addr's contract bytecode.
func (s *StateDB) Code(addr common.Address) []byte {
	return s.getOrLoad(addr).object.Code(s.codeDB)
}

// CodeHash returns addr's code hash.
func (s *StateDB) CodeHash(addr common.Address) common.Hash {
	return common.BytesToHash(s.getOrLoad(addr).object.CodeHash())
}

// StorageAt returns the value of a storage slot for addr.
func (s *StateDB) StorageAt(addr common.Address, key common.Hash) common.Hash {
	return s.getOrLoad(addr).object.GetState(key)
}

// OriginalStorageAt returns the pre-first-write value of a storage slot for
// addr in the current transaction -- used by SSTORE net-gas metering.
func (s *StateDB) OriginalStorageAt(addr common.Address, key common.Hash) common.Hash {
	return s.getOrLoad(addr).object.OriginalStorage(key)
}

// SetState writes a storage slot for addr.
func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	s.markDirty(addr).object.SetState(key, value)
}

// SetCode replaces addr's code.
func (s *StateDB) SetCode(addr common.Address, code []byte) {
	s.markDirty(addr).object.SetCode(code)
}

// IncrNonce increments addr's nonce.
func (s *StateDB) IncrNonce(addr common.Address) {
	s.markDirty(addr).object.IncrNonce()
}

// SetNonce sets addr's nonce directly.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	s.markDirty(addr).object.SetNonce(nonce)
}

// AddBalance credits addr with amount. A zero-value add to an empty account
// is an EIP-161 touch: the entry is marked dirty, and Commit removes it from
// the world state if it is still empty then, so the account does not exist
// after commit.
func (s *StateDB) AddBalance(addr common.Address, amount *big.Int) {
	e := s.markDirty(addr)
	e.object.AddBalance(amount)
}

// SubBalance debits addr by amount, returning ErrBalanceUnderflow if
// insufficient.
func (s *StateDB) SubBalance(addr common.Address, amount *big.Int) error {
	e := s.markDirty(addr)
	return e.object.SubBalance(amount)
}

// Transfer atomically moves value from one account to another. On
// insufficient balance, neither leg is applied.
func (s *StateDB) Transfer(from, to common.Address, value *big.Int) error {
	if value.Sign() == 0 {
		// Still a touch on both ends, per EIP-161.
		s.AddBalance(to, value)
		s.AddBalance(from, value)
		return nil
	}
	if s.Balance(from).Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	if err := s.SubBalance(from, value); err != nil {
		return err
	}
	s.AddBalance(to, value)
	return nil
}

// AddRefund increases the refund counter.
func (s *StateDB) AddRefund(v uint64) { s.refund += v }

// SubRefund decreases the refund counter; it never goes negative in
// practice (callers only subtract what they previously added within the
// same transaction scope).
func (s *StateDB) SubRefund(v uint64) {
	if v > s.refund {
		s.refund = 0
		return
	}
	s.refund -= v
}

// Refund returns the current refund counter.
func (s *StateDB) Refund() uint64 { return s.refund }

// AddLog appends a log entry in opcode-emission order.
func (s *StateDB) AddLog(addr common.Address, topics []common.Hash, data []byte) {
	s.logs = append(s.logs, &types.Log{Address: addr, Topics: topics, Data: data})
}

// Logs returns the logs accumulated so far in the current transaction.
func (s *StateDB) Logs() []*types.Log { return s.logs }

// ResetTxState clears the per-transaction logs, refund counter, and
// self-destruct set; called by the driver between transactions.
func (s *StateDB) ResetTxState() {
	s.logs = nil
	s.refund = 0
	s.selfDestructSet = make(map[common.Address]bool)
}

// SelfDestructRefund is the pre-EIP-3529 refund credited once per account on
// its first self-destruct within a transaction (spec §9(c), scenario E4).
const SelfDestructRefund uint64 = 24000

// SelfDestruct transfers addr's full balance to beneficiary and tombstones
// addr, recording it in the self-destruct set. Self-destructing to one's own
// address burns the balance: no transfer occurs and the account (balance
// included) is removed wholesale at commit.
func (s *StateDB) SelfDestruct(addr, beneficiary common.Address) error {
	e := s.getOrLoad(addr)
	bal := new(big.Int).Set(e.object.Balance())
	if bal.Sign() != 0 && addr != beneficiary {
		if err := s.Transfer(addr, beneficiary, bal); err != nil {
			return err
		}
	}
	e = s.markDirty(addr)
	e.object.kill()
	e.tombstone = true
	if !s.selfDestructSet[addr] {
		s.selfDestructSet[addr] = true
		s.noteSelfDestruct(addr)
		s.AddRefund(SelfDestructRefund)
	}
	return nil
}

// SelfDestructed reports whether addr is in the current transaction's
// self-destruct set.
func (s *StateDB) SelfDestructed(addr common.Address) bool {
	return s.selfDestructSet[addr]
}

// SelfDestructSet returns the addresses in the current transaction's
// self-destruct set. The accounts themselves are already tombstoned and are
// removed by Commit.
func (s *StateDB) SelfDestructSet() []common.Address {
	out := make([]common.Address, 0, len(s.selfDestructSet))
	for a := range s.selfDestructSet {
		out = append(out, a)
	}
	return out
}

// Commit flushes every dirty entry's storage and account record back
// through the world trie and returns the new world root. Commit is only
// legal when the checkpoint stack is empty.
func (s *StateDB) Commit() (common.Hash, error) {
	if len(s.checkpoints) != 0 {
		return common.Hash{}, ErrCommitWithOpenCheckpoints
	}
	for addr, e := range s.entries {
		key := worldKey(addr).Bytes()
		if !e.dirty {
			continue
		}
		if e.tombstone || e.object.empty() {
			// EIP-161 account clearing: a touched account that is empty at
			// commit time is removed, whether tombstoned by self-destruct
			// or left empty by a zero-value touch.
			s.world.Remove(key)
			delete(s.entries, addr)
			continue
		}
		if e.object.dirtyCode && e.object.code != nil {
			s.codeDB.Put(common.BytesToHash(e.object.CodeHash()), e.object.code)
			e.object.dirtyCode = false
		}
		e.object.data.Root = e.object.updateTrie()
		enc, err := rlp.EncodeToBytes(&e.object.data)
		if err != nil {
			return common.Hash{}, err
		}
		s.world.Insert(key, enc)
		e.dirty = false
	}
	s.committedRoot = s.world.Commit()
	return s.committedRoot, nil
}

// Root returns the last committed world root.
func (s *StateDB) Root() common.Hash { return s.committedRoot }

func hashAddr(addr common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256(addr[:]))
}
