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

// Package core implements the Execution Driver (component F): intrinsic gas,
// top-level call/create dispatch, refund accounting, and receipt assembly.
// It runs the top-level frame through core/vm.EVM.Call, which opens and
// resolves that frame's checkpoint exactly as it does for nested frames,
// using the same World State contract.
package core

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xbundler/evmexec/core/state"
	"github.com/0xbundler/evmexec/core/types"
	"github.com/0xbundler/evmexec/core/vm"
)

// Gas schedule constants, pinned to EIP-2028 (Istanbul calldata repricing)
// per SPEC_FULL.md §4.F.
const (
	TxGas                   uint64 = 21000
	TxGasContractCreation   uint64 = 53000
	TxDataZeroGas           uint64 = 4
	TxDataNonZeroGasEIP2028 uint64 = 16
)

// Pre-execution errors: surfaced to the caller, world state untouched.
var (
	ErrNonceMismatch             = errors.New("core: nonce mismatch")
	ErrInsufficientBalanceForFee = errors.New("core: insufficient balance for fee")
	ErrBlockGasLimitReached      = errors.New("core: gas limit exceeds block gas limit")
	ErrNotEnoughBaseGas          = errors.New("core: not enough gas for intrinsic cost")
)

// ErrInternal wraps an infrastructure failure (trie error, missing code for
// a known hash): the transaction aborts with no state mutation at all,
// independent of gas (spec §7).
type ErrInternal struct{ Err error }

func (e *ErrInternal) Error() string { return "core: internal error: " + e.Err.Error() }
func (e *ErrInternal) Unwrap() error { return e.Err }

// IntrinsicGas computes the base gas cost of a transaction: the flat fee
// (TxGasContractCreation in place of TxGas for a creation, i.e. TxGas plus the
// 32000 creation surcharge) plus the calldata cost (spec §4.F step 1).
func IntrinsicGas(data []byte, isCreate bool) uint64 {
	gas := TxGas
	if isCreate {
		gas = TxGasContractCreation
	}
	for _, b := range data {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGasEIP2028
		}
	}
	return gas
}

// Exec is the Execution Driver's entry point (spec §4.F).
func Exec(st *state.StateDB, block vm.BlockContext, cfg types.Config, tx *types.Transaction, interp vm.Interpreter) (*types.ExecOutcome, error) {
	// --- 1. Validate ---
	if tx.GasLimit > cfg.BlockGasLimit {
		return nil, ErrBlockGasLimitReached
	}
	if st.Nonce(tx.From) != tx.Nonce {
		return nil, ErrNonceMismatch
	}
	upfrontCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice)
	upfrontCost.Add(upfrontCost, tx.Value)
	if st.Balance(tx.From).Cmp(upfrontCost) < 0 {
		return nil, ErrInsufficientBalanceForFee
	}
	intrinsic := IntrinsicGas(tx.Input, tx.IsCreate())
	if tx.GasLimit < intrinsic {
		return nil, ErrNotEnoughBaseGas
	}

	// --- 2. Prepay ---
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice)
	if err := st.SubBalance(tx.From, gasCost); err != nil {
		return nil, &ErrInternal{Err: err}
	}
	// A contract-creation transaction's nonce bump happens inside
	// vm.EVM.create, using the pre-bump value (tx.Nonce) for address
	// derivation; bumping it here too would double-increment and shift
	// every CREATE address off by one.
	if !tx.IsCreate() {
		st.IncrNonce(tx.From)
	}
	st.ResetTxState()

	evm := vm.NewEVM(st, block, interp)
	gasRemaining := tx.GasLimit - intrinsic

	// --- 3. Open top-level checkpoint, transfer value, dispatch ---
	outcome := &types.ExecOutcome{}
	var salt *common.Hash
	var callee common.Address
	kind := vm.Call
	if tx.IsCreate() {
		kind = vm.Create
	} else {
		callee = *tx.To
	}
	res := evm.Call(kind, tx.From, callee, tx.Value, tx.Input, gasRemaining, false, salt)

	gasUsedByFrame := gasRemaining - res.GasLeft
	outcome.Success = res.Success
	outcome.ReturnData = res.ReturnData
	if !res.Success {
		outcome.RevertReason = res.ReturnData
	}
	if res.Success && tx.IsCreate() {
		addr := res.ContractAddr
		outcome.ContractAddr = &addr
	}

	// --- 4/5/6: refund cap, gas settlement, commit ---
	// Self-destructed accounts are already tombstoned (state.StateDB.SelfDestruct)
	// and are swept during Commit; there is nothing further to process here.
	gasUsed := intrinsic + gasUsedByFrame
	refund := st.Refund()
	maxRefund := gasUsed / 2
	if refund > maxRefund {
		refund = maxRefund
	}
	outcome.GasUsed = gasUsed - refund

	leftover := tx.GasLimit - outcome.GasUsed
	st.AddBalance(tx.From, new(big.Int).Mul(new(big.Int).SetUint64(leftover), tx.GasPrice))

	// A nonzero payment always leaves the coinbase account non-empty, so
	// EIP-161 suppression (spec §4.F step 6) never applies here; a zero
	// payment is already a no-op in AddBalance.
	st.AddBalance(block.Coinbase, new(big.Int).Mul(new(big.Int).SetUint64(outcome.GasUsed), tx.GasPrice))

	outcome.Logs = st.Logs()

	root, err := st.Commit()
	if err != nil {
		return nil, &ErrInternal{Err: err}
	}
	outcome.StateRootAfter = root
	return outcome, nil
}
