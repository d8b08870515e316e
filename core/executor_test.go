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

package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/0xbundler/evmexec/core/state"
	"github.com/0xbundler/evmexec/core/types"
	"github.com/0xbundler/evmexec/core/vm"
)

var (
	addrA    = common.HexToAddress("0xa000000000000000000000000000000000000a")
	coinbase = common.HexToAddress("0xc0ffee0000000000000000000000000000dead")
	key1     = common.HexToHash("0x01")
)

func testBlock() vm.BlockContext {
	return vm.BlockContext{
		Coinbase:   coinbase,
		Number:     big.NewInt(1),
		Timestamp:  1000,
		Difficulty: big.NewInt(0),
		GasLimit:   8_000_000,
		GetHash:    func(uint64) common.Hash { return common.Hash{} },
	}
}

func testConfig() types.Config { return types.Config{BlockGasLimit: 8_000_000} }

// action is one scripted contract's Run behavior for the stub interpreter.
type action func(evm *vm.EVM, self common.Address, input []byte, gas uint64) ([]byte, uint64, error)

// scriptedInterpreter plays back a fixed action per contract address, so
// driver-level tests don't need a real opcode engine (out of scope).
type scriptedInterpreter struct {
	actions map[common.Address]action
}

func (s scriptedInterpreter) Run(evm *vm.EVM, contractAddr common.Address, code, input []byte, gas uint64, static bool) ([]byte, uint64, error) {
	act, ok := s.actions[contractAddr]
	if !ok {
		return nil, gas, nil
	}
	return act(evm, contractAddr, input, gas)
}

// TestExecSimpleStorage reproduces scenario E1: a call into a contract that
// writes a storage slot, committed to the world state on success.
func TestExecSimpleStorage(t *testing.T) {
	st := state.New()
	st.AddBalance(addrA, big.NewInt(1_000_000_000))

	storageAddr := common.HexToAddress("0x5700000000000000000000000000000000005e")
	st.NewContract(storageAddr, big.NewInt(0), 0, []byte{0x60, 0x00}) // nonzero code

	interp := scriptedInterpreter{actions: map[common.Address]action{
		storageAddr: func(evm *vm.EVM, self common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
			evm.State.SetState(self, key1, common.HexToHash("0x2a"))
			return nil, gas - 1000, nil
		},
	}}

	tx := &types.Transaction{
		From: addrA, To: &storageAddr, Value: big.NewInt(0),
		Nonce: 0, GasLimit: 100_000, GasPrice: big.NewInt(1),
	}
	outcome, err := Exec(st, testBlock(), testConfig(), tx, interp)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, common.HexToHash("0x2a"), st.StorageAt(storageAddr, key1))
}

// TestExecTransfer reproduces scenario E2: a plain value transfer to an EOA
// that has no code, so the interpreter is never invoked.
func TestExecTransfer(t *testing.T) {
	st := state.New()
	st.AddBalance(addrA, big.NewInt(1_000_000_000))
	to := common.HexToAddress("0xb000000000000000000000000000000000000b")

	tx := &types.Transaction{
		From: addrA, To: &to, Value: big.NewInt(50),
		Nonce: 0, GasLimit: 50_000, GasPrice: big.NewInt(1),
	}
	outcome, err := Exec(st, testBlock(), testConfig(), tx, scriptedInterpreter{})
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, big.NewInt(50), st.Balance(to))
}

// TestExecRevertPreservesParentWrites reproduces scenario E3: a nested call
// that reverts must undo only its own frame's writes, leaving the calling
// frame's prior writes intact.
func TestExecRevertPreservesParentWrites(t *testing.T) {
	st := state.New()
	st.AddBalance(addrA, big.NewInt(1_000_000_000))

	outerAddr := common.HexToAddress("0x0000000000000000000000000000000000aaaa")
	innerAddr := common.HexToAddress("0x0000000000000000000000000000000000bbbb")
	st.NewContract(outerAddr, big.NewInt(0), 0, []byte{0x60, 0x00})
	st.NewContract(innerAddr, big.NewInt(0), 0, []byte{0x60, 0x00})

	interp := scriptedInterpreter{actions: map[common.Address]action{
		outerAddr: func(evm *vm.EVM, self common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
			evm.State.SetState(self, key1, common.HexToHash("0x11"))
			evm.Call(vm.Call, self, innerAddr, big.NewInt(0), nil, gas/2, false, nil)
			return nil, gas / 2, nil
		},
		innerAddr: func(evm *vm.EVM, self common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
			evm.State.SetState(self, key1, common.HexToHash("0x22"))
			return nil, 0, vm.ErrExecutionReverted
		},
	}}

	tx := &types.Transaction{
		From: addrA, To: &outerAddr, Value: big.NewInt(0),
		Nonce: 0, GasLimit: 100_000, GasPrice: big.NewInt(1),
	}
	outcome, err := Exec(st, testBlock(), testConfig(), tx, interp)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, common.HexToHash("0x11"), st.StorageAt(outerAddr, key1))
	require.Equal(t, common.Hash{}, st.StorageAt(innerAddr, key1))
}

// TestExecSelfDestructRefundCap reproduces scenario E4: the self-destruct
// refund is credited but capped at half of the gas actually used.
func TestExecSelfDestructRefundCap(t *testing.T) {
	st := state.New()
	st.AddBalance(addrA, big.NewInt(1_000_000_000))

	victim := common.HexToAddress("0x00000000000000000000000000000000005e1f")
	beneficiary := common.HexToAddress("0x000000000000000000000000000000000beef1")
	st.NewContract(victim, big.NewInt(500), 0, []byte{0x60, 0x00})

	interp := scriptedInterpreter{actions: map[common.Address]action{
		victim: func(evm *vm.EVM, self common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
			require.NoError(t, evm.State.SelfDestruct(self, beneficiary))
			return nil, gas - 1000, nil
		},
	}}

	tx := &types.Transaction{
		From: addrA, To: &victim, Value: big.NewInt(0),
		Nonce: 0, GasLimit: 100_000, GasPrice: big.NewInt(1),
	}
	outcome, err := Exec(st, testBlock(), testConfig(), tx, interp)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, uint64(11000), outcome.GasUsed) // (21000+1000) - min(24000, 22000/2)
	require.False(t, st.Exist(victim))
	require.Equal(t, big.NewInt(500), st.Balance(beneficiary))
}

// TestExecCreateCollision reproduces scenario E5: CREATE at an address that
// already holds a nonce or code fails before any init code runs, so the
// transaction is charged only its intrinsic gas.
func TestExecCreateCollision(t *testing.T) {
	st := state.New()
	st.AddBalance(addrA, big.NewInt(1_000_000_000))

	const nonce = 0
	enc, err := rlp.EncodeToBytes([]interface{}{addrA, uint64(nonce)})
	require.NoError(t, err)
	collisionAddr := common.BytesToAddress(crypto.Keccak256(enc)[12:])
	st.NewContract(collisionAddr, big.NewInt(0), 1, nil) // pre-existing nonzero nonce

	tx := &types.Transaction{
		From: addrA, To: nil, Value: big.NewInt(0),
		Nonce: nonce, GasLimit: 200_000, GasPrice: big.NewInt(1),
		Input: []byte{0x60, 0x00, 0x60, 0x00, 0xf3},
	}
	outcome, err := Exec(st, testBlock(), testConfig(), tx, scriptedInterpreter{})
	require.NoError(t, err)
	require.False(t, outcome.Success)
	require.Equal(t, IntrinsicGas(tx.Input, true), outcome.GasUsed)
}
