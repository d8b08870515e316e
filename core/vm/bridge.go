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

// Package vm holds the interpreter bridge (component G) and the precompiled
// contracts (component E). The opcode interpreter itself is out of scope
// (spec §1); this package only defines the narrow up-call surface it needs
// and the fixed-address pure functions it dispatches to.
package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateDB is the view of the World State the interpreter bridge needs:
// every opcode-level accessor/mutator, plus the checkpoint primitives EVM.Call
// uses to open and resolve one frame at a time. It deliberately has no
// Commit method -- that remains the driver's privilege alone, exercised
// once per transaction after the top-level frame has already resolved.
type StateDB interface {
	Exist(addr common.Address) bool
	ExistAndNotEmpty(addr common.Address) bool
	Balance(addr common.Address) *big.Int
	Nonce(addr common.Address) uint64
	Code(addr common.Address) []byte
	CodeHash(addr common.Address) common.Hash
	StorageAt(addr common.Address, key common.Hash) common.Hash
	OriginalStorageAt(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key, value common.Hash)
	SetCode(addr common.Address, code []byte)
	IncrNonce(addr common.Address)
	SetNonce(addr common.Address, nonce uint64)
	AddBalance(addr common.Address, amount *big.Int)
	SubBalance(addr common.Address, amount *big.Int) error
	Transfer(from, to common.Address, value *big.Int) error
	AddRefund(v uint64)
	SubRefund(v uint64)
	Refund() uint64
	AddLog(addr common.Address, topics []common.Hash, data []byte)
	SelfDestruct(addr, beneficiary common.Address) error
	SelfDestructed(addr common.Address) bool
	NewContract(addr common.Address, balance *big.Int, nonce uint64, code []byte)
	Checkpoint() int
	DiscardCheckpoint()
	RevertCheckpoint()
}

// BlockContext is the read-only block environment available to opcodes
// (BLOCKHASH/COINBASE/TIMESTAMP/NUMBER/DIFFICULTY/GASLIMIT).
type BlockContext struct {
	Coinbase   common.Address
	Timestamp  uint64
	Number     *big.Int
	Difficulty *big.Int
	GasLimit   uint64
	// GetHash looks up the hash of the given block number. BlockHash only
	// calls it for numbers inside [current-256, current-1] and returns zero
	// for any other number (spec §4.G).
	GetHash func(number uint64) common.Hash
}

// BlockHash returns the hash of block number n, or zero if n is not in the
// queryable window relative to the current block.
func (bc BlockContext) BlockHash(n uint64) common.Hash {
	cur := bc.Number.Uint64()
	if cur == 0 || n >= cur || n+256 < cur {
		return common.Hash{}
	}
	return bc.GetHash(n)
}

// CallKind enumerates the nested call/create variants the bridge's Call
// up-call dispatches on (spec §4.F "Nested call/create").
type CallKind int

const (
	CallCode CallKind = iota
	Call
	DelegateCall
	StaticCall
	Create
	Create2
)

// CallResult is what a nested call/create up-call returns to the
// interpreter that invoked it.
type CallResult struct {
	Success      bool
	ReturnData   []byte
	GasLeft      uint64
	ContractAddr common.Address // set only for Create/Create2
}

// CallContext is the minimal environment an up-called nested frame needs
// beyond (kind, caller, callee, value, input, gas, static): access to the
// bridge that mediates it back against the World State, precompiles, and
// the block context.
type CallContext interface {
	// Call dispatches a nested CALL/CALLCODE/DELEGATECALL/STATICCALL/
	// CREATE/CREATE2. Each nested frame opens and resolves its own
	// checkpoint, with state-reversion rules identical to the top-level
	// frame (spec §4.F). For Create/Create2, input is the init code and
	// callee is ignored (the address is derived); salt is only consulted
	// for Create2.
	Call(kind CallKind, caller, callee common.Address, value *big.Int, input []byte, gas uint64, static bool, salt *common.Hash) CallResult
	// Precompile reports whether addr is a fixed-address precompile and,
	// if so, the contract implementing it.
	Precompile(addr common.Address) (PrecompiledContract, bool)
	Block() BlockContext
}
