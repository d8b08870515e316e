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

package vm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// MaxCallDepth is the call-stack limit from spec §4.F.
const MaxCallDepth = 1024

// ErrDepthExceeded is returned when a nested call would exceed MaxCallDepth.
var ErrDepthExceeded = errors.New("vm: max call depth exceeded")

// ErrExecutionReverted is the sentinel the Interpreter returns for an
// explicit REVERT opcode: unused gas is refunded and return data preserved,
// unlike every other frame-fatal exception.
var ErrExecutionReverted = errors.New("vm: execution reverted")

// ErrWriteProtection is returned when a state-modifying operation is
// attempted inside a static (STATICCALL) frame.
var ErrWriteProtection = errors.New("vm: write protection")

// Interpreter is the out-of-scope opcode engine's up-call contract: given a
// frame's code, input, and gas, it runs to completion and reports the
// outcome. It calls back into the EVM (via the CallContext it is handed)
// for SLOAD/SSTORE/BALANCE/LOG/CALL/CREATE.
type Interpreter interface {
	Run(evm *EVM, contractAddr common.Address, code, input []byte, gas uint64, static bool) (ret []byte, gasLeft uint64, err error)
}

// EVM is the concrete interpreter bridge (component G): it implements
// CallContext over a World State, a block context, and whatever Interpreter
// is plugged in, and owns the call-depth counter that the driver and nested
// frames share. The static-call flag is not stored here; it is passed to
// each Call and on to the Interpreter.
type EVM struct {
	State  StateDB
	block  BlockContext
	interp Interpreter
	depth  int
}

// NewEVM constructs a bridge over st for the given block context and
// interpreter implementation. st only needs to satisfy this package's
// StateDB view -- the real implementation is core/state.StateDB, but tests
// may plug in a narrower fake.
func NewEVM(st StateDB, block BlockContext, interp Interpreter) *EVM {
	return &EVM{State: st, block: block, interp: interp}
}

// Block returns the block context.
func (e *EVM) Block() BlockContext { return e.block }

// Precompile reports whether addr is a fixed-address precompile.
func (e *EVM) Precompile(addr common.Address) (PrecompiledContract, bool) {
	p, ok := PrecompiledContracts[addr]
	return p, ok
}

// Depth returns the current call-stack depth (0 at the top-level frame).
func (e *EVM) Depth() int { return e.depth }

// Call dispatches a nested call/create, opening its own checkpoint and
// reverting or discarding it per the frame's outcome (spec §4.F). A depth
// overrun returns failure to the caller without ever opening a checkpoint
// for the new frame -- the outer frame's own checkpoint (already open) is
// untouched.
func (e *EVM) Call(kind CallKind, caller, callee common.Address, value *big.Int, input []byte, gas uint64, static bool, salt *common.Hash) CallResult {
	if e.depth >= MaxCallDepth {
		return CallResult{Success: false, GasLeft: gas}
	}
	if static && (kind == Call || kind == Create || kind == Create2) && value != nil && value.Sign() != 0 {
		return CallResult{Success: false, GasLeft: gas}
	}

	e.State.Checkpoint()
	e.depth++
	res := e.dispatch(kind, caller, callee, value, input, gas, static, salt)
	e.depth--
	if res.Success {
		e.State.DiscardCheckpoint()
	} else {
		e.State.RevertCheckpoint()
		if kind == Create || kind == Create2 {
			// The creator's nonce bump made by create outlives a failed creation.
			e.State.IncrNonce(caller)
		}
	}
	return res
}

func (e *EVM) dispatch(kind CallKind, caller, callee common.Address, value *big.Int, input []byte, gas uint64, static bool, salt *common.Hash) CallResult {
	switch kind {
	case Create:
		return e.create(caller, input, value, gas, nil)
	case Create2:
		return e.create(caller, input, value, gas, salt)
	default:
		return e.call(kind, caller, callee, value, input, gas, static)
	}
}

func (e *EVM) call(kind CallKind, caller, callee common.Address, value *big.Int, input []byte, gas uint64, static bool) CallResult {
	if kind == Call && value != nil && value.Sign() != 0 {
		if err := e.State.Transfer(caller, callee, value); err != nil {
			return CallResult{Success: false, GasLeft: gas}
		}
	}
	if p, ok := e.Precompile(callee); ok {
		out, left, err := RunPrecompiled(p, input, gas)
		if err != nil {
			return CallResult{Success: false, GasLeft: 0}
		}
		return CallResult{Success: true, ReturnData: out, GasLeft: left}
	}

	execTarget := callee
	if kind == DelegateCall || kind == CallCode {
		execTarget = callee // code runs from callee's code, storage/address context from caller (interpreter's responsibility to thread through)
	}
	code := e.State.Code(execTarget)
	if len(code) == 0 {
		return CallResult{Success: true, GasLeft: gas}
	}
	if e.interp == nil {
		return CallResult{Success: false, GasLeft: 0}
	}
	ret, left, err := e.interp.Run(e, callee, code, input, gas, static)
	if err != nil {
		if errors.Is(err, ErrExecutionReverted) {
			return CallResult{Success: false, ReturnData: ret, GasLeft: left}
		}
		return CallResult{Success: false, GasLeft: 0}
	}
	return CallResult{Success: true, ReturnData: ret, GasLeft: left}
}

func (e *EVM) create(caller common.Address, initCode []byte, value *big.Int, gas uint64, salt *common.Hash) CallResult {
	// The address is derived from the creator's nonce as it stood before
	// this CREATE's own bump -- for the top-level frame that is tx.Nonce,
	// since the driver defers its nonce increment to here for creations.
	nonce := e.State.Nonce(caller)

	var addr common.Address
	if salt != nil {
		codeHash := crypto.Keccak256(initCode)
		buf := make([]byte, 0, 1+common.AddressLength+common.HashLength+len(codeHash))
		buf = append(buf, 0xff)
		buf = append(buf, caller.Bytes()...)
		buf = append(buf, salt.Bytes()...)
		buf = append(buf, codeHash...)
		addr = common.BytesToAddress(crypto.Keccak256(buf)[12:])
	} else {
		enc, _ := rlp.EncodeToBytes([]interface{}{caller, nonce})
		addr = common.BytesToAddress(crypto.Keccak256(enc)[12:])
	}
	// EIP-161: every CREATE/CREATE2 bumps the creator's nonce, so two
	// creations by the same contract within one transaction never collide.
	e.State.IncrNonce(caller)

	if e.State.Exist(addr) && (e.State.Nonce(addr) != 0 || len(e.State.Code(addr)) != 0) {
		return CallResult{Success: false, GasLeft: gas} // CreateCollision
	}

	e.State.NewContract(addr, big.NewInt(0), 0, nil)
	if value != nil && value.Sign() != 0 {
		if err := e.State.Transfer(caller, addr, value); err != nil {
			return CallResult{Success: false, GasLeft: gas}
		}
	}

	if e.interp == nil || len(initCode) == 0 {
		return CallResult{Success: true, GasLeft: gas, ContractAddr: addr}
	}
	ret, left, err := e.interp.Run(e, addr, initCode, nil, gas, false)
	if err != nil {
		if errors.Is(err, ErrExecutionReverted) {
			return CallResult{Success: false, ReturnData: ret, GasLeft: left}
		}
		return CallResult{Success: false, GasLeft: 0}
	}

	const codeDepositGasPerByte = 200
	depositGas := uint64(len(ret)) * codeDepositGasPerByte
	if left < depositGas {
		return CallResult{Success: false, GasLeft: 0} // CodeDepositFailure: the contract does not exist
	}
	left -= depositGas
	e.State.SetCode(addr, ret)
	return CallResult{Success: true, GasLeft: left, ContractAddr: addr}
}
