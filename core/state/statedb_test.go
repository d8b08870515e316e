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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addrB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	key1  = common.HexToHash("0x01")
)

func TestCheckpointRoundTrip(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(100))
	s.SetState(addrA, key1, common.HexToHash("0x07"))

	before := s.Balance(addrA)
	beforeStorage := s.StorageAt(addrA, key1)
	beforeRefund := s.Refund()
	beforeLogs := len(s.Logs())
	beforeSelfDestruct := len(s.SelfDestructSet())

	s.Checkpoint()
	s.AddBalance(addrA, big.NewInt(55))
	s.SetState(addrA, key1, common.HexToHash("0x09"))
	s.AddRefund(42)
	s.AddLog(addrA, nil, []byte("x"))
	require.NoError(t, s.SelfDestruct(addrB, addrA))

	s.RevertCheckpoint()

	require.Equal(t, before, s.Balance(addrA))
	require.Equal(t, beforeStorage, s.StorageAt(addrA, key1))
	require.Equal(t, beforeRefund, s.Refund())
	require.Equal(t, beforeLogs, len(s.Logs()))
	require.Equal(t, beforeSelfDestruct, len(s.SelfDestructSet()))
}

func TestDiscardEquivalence(t *testing.T) {
	s1 := New()
	s1.AddBalance(addrA, big.NewInt(100))
	s1.SetState(addrA, key1, common.HexToHash("0x07"))

	s2 := New()
	s2.AddBalance(addrA, big.NewInt(100))
	s2.SetState(addrA, key1, common.HexToHash("0x07"))
	s2.Checkpoint()
	s2.AddBalance(addrA, big.NewInt(5))
	s2.SetState(addrA, key1, common.HexToHash("0x09"))
	s2.DiscardCheckpoint()

	s1.AddBalance(addrA, big.NewInt(5))
	s1.SetState(addrA, key1, common.HexToHash("0x09"))

	require.Equal(t, s1.Balance(addrA), s2.Balance(addrA))
	require.Equal(t, s1.StorageAt(addrA, key1), s2.StorageAt(addrA, key1))
}

func TestOldestWinsMerge(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(10))
	before := new(big.Int).Set(s.Balance(addrA))

	s.Checkpoint() // outer
	s.AddBalance(addrA, big.NewInt(1))
	s.Checkpoint() // inner
	s.AddBalance(addrA, big.NewInt(2))
	s.DiscardCheckpoint() // merge inner into outer, retaining outer's oldest snapshot

	s.RevertCheckpoint() // revert outer: must land on `before`, not before+1
	require.Equal(t, before, s.Balance(addrA))
}

func TestCommitIdempotence(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(1))
	root1, err := s.Commit()
	require.NoError(t, err)
	root2, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

func TestRootDeterminism(t *testing.T) {
	build := func() common.Hash {
		s := New()
		s.AddBalance(addrA, big.NewInt(7))
		s.SetState(addrA, key1, common.HexToHash("0x09"))
		root, err := s.Commit()
		require.NoError(t, err)
		return root
	}
	require.Equal(t, build(), build())
}

func TestEIP161TouchLeavesEmptyAccountNonexistent(t *testing.T) {
	s := New()
	require.NoError(t, s.Transfer(addrA, addrB, big.NewInt(0)))
	_, err := s.Commit()
	require.NoError(t, err)
	require.False(t, s.Exist(addrB))
}

func TestEIP161NonzeroTransferCreatesAccount(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(100))
	require.NoError(t, s.Transfer(addrA, addrB, big.NewInt(30)))
	_, err := s.Commit()
	require.NoError(t, err)
	require.True(t, s.Exist(addrB))
	require.Equal(t, big.NewInt(30), s.Balance(addrB))
	require.Equal(t, uint64(0), s.Nonce(addrB))
}

func TestRefundCap(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(100))
	require.NoError(t, s.SelfDestruct(addrA, addrB))
	gasUsed := uint64(30000)
	refund := s.Refund()
	if refund > gasUsed/2 {
		refund = gasUsed / 2
	}
	require.LessOrEqual(t, refund, gasUsed/2)
}

func TestCommitRejectsOpenCheckpoints(t *testing.T) {
	s := New()
	s.Checkpoint()
	_, err := s.Commit()
	require.ErrorIs(t, err, ErrCommitWithOpenCheckpoints)
}

func TestSetStateZeroElision(t *testing.T) {
	s := New()
	s.AddBalance(addrA, big.NewInt(1)) // make the account non-empty so it survives commit
	s.SetState(addrA, key1, common.HexToHash("0x09"))
	s.SetState(addrA, key1, common.Hash{})
	_, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, s.StorageAt(addrA, key1))
}
