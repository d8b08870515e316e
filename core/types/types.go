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

// Package types holds the wire-level data model shared by the state and
// execution packages: the Account Record, block/transaction inputs, and the
// execution outcome.
package types

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// EmptyCodeHash is keccak256("") -- the code hash of an account with no code.
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// EmptyRootHash is the Ethereum Merkle-Patricia root of a trie holding no
// entries. NewEmptyStateAccount uses it as the storage root of a fresh
// account; the state commit pipeline replaces it with the root of the
// account's trie.SimpleTrie, whose empty root is trie.EmptyRoot (the zero
// hash).
var EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// StateAccount is the Account Record (B): the RLP-encoded quadruple persisted
// in the world trie for every account.
type StateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // storage trie root
	CodeHash []byte
}

// NewEmptyStateAccount returns the canonical representation of an account
// that has never been touched: zero nonce, zero balance, empty storage,
// empty code.
func NewEmptyStateAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(big.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// Copy returns a deep copy safe to hold in a checkpoint snapshot.
func (a *StateAccount) Copy() *StateAccount {
	cpy := *a
	cpy.Balance = new(big.Int).Set(a.Balance)
	cpy.CodeHash = common.CopyBytes(a.CodeHash)
	return &cpy
}

// Empty reports whether the account is EIP-161 empty: zero nonce, zero
// balance, and the code hash of the empty string.
func (a *StateAccount) Empty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && common.BytesToHash(a.CodeHash) == EmptyCodeHash
}

// rlpAccount is the on-the-wire shape of StateAccount; Balance is carried as
// *big.Int directly since rlp natively supports big.Int encoding.
type rlpAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash
	CodeHash []byte
}

// EncodeRLP implements rlp.Encoder.
func (a *StateAccount) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpAccount{
		Nonce:    a.Nonce,
		Balance:  a.Balance,
		Root:     a.Root,
		CodeHash: a.CodeHash,
	})
}

// DecodeRLP implements rlp.Decoder.
func (a *StateAccount) DecodeRLP(s *rlp.Stream) error {
	var dec rlpAccount
	if err := s.Decode(&dec); err != nil {
		return err
	}
	a.Nonce, a.Balance, a.Root, a.CodeHash = dec.Nonce, dec.Balance, dec.Root, dec.CodeHash
	return nil
}

// Log is a single LOG opcode emission (component D "logs list").
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Transaction is the input message to Exec.
type Transaction struct {
	From     common.Address
	To       *common.Address // nil => contract creation
	Value    *big.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Input    []byte
}

// IsCreate reports whether this transaction deploys a new contract.
func (tx *Transaction) IsCreate() bool {
	return tx.To == nil
}

// Config is the only execution-scope configuration option recognized here.
type Config struct {
	BlockGasLimit uint64
}

// ExecOutcome is the result of a successful or failed top-level Exec call.
type ExecOutcome struct {
	Success        bool
	ReturnData     []byte
	GasUsed        uint64
	Logs           []*Log
	ContractAddr   *common.Address // set on a successful Create
	StateRootAfter common.Hash
	RevertReason   []byte // set when failure was an explicit REVERT
}
