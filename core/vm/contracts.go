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
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Ethereum precompile 0x03 is specified in terms of this exact hash.
)

// ErrOutOfGas is returned when gas_available is too small for the
// precompile's required gas.
var ErrOutOfGas = errors.New("vm: out of gas")

// ErrInvalidInput is returned for malformed precompile input that the
// Yellow Paper treats as a hard failure rather than silent degradation
// (everything except ECRECOVER, which never errors).
var ErrInvalidInput = errors.New("vm: invalid precompile input")

// PrecompiledContract is the fixed-address pure-function contract (E).
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// PrecompiledContracts is the Istanbul address map (spec §4.E, pinned per
// SPEC_FULL.md to close Open Question (a)).
var PrecompiledContracts = map[common.Address]PrecompiledContract{
	common.BytesToAddress([]byte{1}): ecrecover{},
	common.BytesToAddress([]byte{2}): sha256hash{},
	common.BytesToAddress([]byte{3}): ripemd160hash{},
	common.BytesToAddress([]byte{4}): identity{},
	common.BytesToAddress([]byte{5}): modexp{},
	common.BytesToAddress([]byte{6}): bn128Add{},
	common.BytesToAddress([]byte{7}): bn128Mul{},
	common.BytesToAddress([]byte{8}): bn128Pairing{},
}

// RunPrecompiled charges gas for and executes a precompile, returning
// ErrOutOfGas if gasAvailable is insufficient.
func RunPrecompiled(p PrecompiledContract, input []byte, gasAvailable uint64) ([]byte, uint64, error) {
	gas := p.RequiredGas(input)
	if gasAvailable < gas {
		return nil, 0, ErrOutOfGas
	}
	out, err := p.Run(input)
	if err != nil {
		return nil, 0, err
	}
	return out, gasAvailable - gas, nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// rightPad right-pads (or truncates) buf to exactly n bytes, the
// convention ABI-encoded precompile inputs rely on for short final words.
func rightPad(buf []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, buf)
	return out
}

func wordAt(input []byte, i int) []byte {
	start := i * 32
	if start >= len(input) {
		return make([]byte, 32)
	}
	end := start + 32
	if end > len(input) {
		word := make([]byte, 32)
		copy(word, input[start:])
		return word
	}
	return input[start:end]
}

// --- 0x01 ECRECOVER ---

type ecrecover struct{}

func (ecrecover) RequiredGas([]byte) uint64 { return 3000 }

var secp256k1N = crypto.S256().Params().N

func (ecrecover) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)
	hash := input[:32]
	v := new(big.Int).SetBytes(input[32:64])
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	if !(v.Uint64() == 27 || v.Uint64() == 28) {
		return nil, nil
	}
	one := big.NewInt(1)
	nMinus1 := new(big.Int).Sub(secp256k1N, one)
	if r.Sign() == 0 || r.Cmp(nMinus1) > 0 || s.Sign() == 0 || s.Cmp(nMinus1) > 0 {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig[0:32], common.LeftPadBytes(r.Bytes(), 32))
	copy(sig[32:64], common.LeftPadBytes(s.Bytes(), 32))
	sig[64] = byte(v.Uint64() - 27)

	pub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, nil
	}
	addrHash := crypto.Keccak256(pub[1:])
	return common.LeftPadBytes(addrHash[12:], 32), nil
}

// --- 0x02 SHA256 ---

type sha256hash struct{}

func (sha256hash) RequiredGas(input []byte) uint64 {
	return 60 + 12*uint64(ceilDiv(len(input), 32))
}

func (sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// --- 0x03 RIPEMD160 ---

type ripemd160hash struct{}

func (ripemd160hash) RequiredGas(input []byte) uint64 {
	return 600 + 120*uint64(ceilDiv(len(input), 32))
}

func (ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	return common.LeftPadBytes(h.Sum(nil), 32), nil
}

// --- 0x04 IDENTITY ---

type identity struct{}

func (identity) RequiredGas(input []byte) uint64 {
	return 15 + 3*uint64(ceilDiv(len(input), 32))
}

func (identity) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// --- 0x05 MODEXP (EIP-2565) ---

type modexp struct{}

func (modexp) lengths(input []byte) (baseLen, expLen, modLen *big.Int) {
	baseLen = new(big.Int).SetBytes(wordAt(input, 0))
	expLen = new(big.Int).SetBytes(wordAt(input, 1))
	modLen = new(big.Int).SetBytes(wordAt(input, 2))
	return
}

func (m modexp) RequiredGas(input []byte) uint64 {
	baseLen, expLen, modLen := m.lengths(input)
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return ^uint64(0)
	}
	bl, el, ml := baseLen.Uint64(), expLen.Uint64(), modLen.Uint64()

	maxLen := bl
	if ml > maxLen {
		maxLen = ml
	}
	words := (maxLen + 7) / 8
	multComplexity := new(big.Int).Mul(new(big.Int).SetUint64(words), new(big.Int).SetUint64(words))

	// exponent bit length, using the first 32 bytes of E when el > 32. E is
	// right-padded with zeros where the input ends early, as in Run.
	headLen := el
	if headLen > 32 {
		headLen = 32
	}
	expHead := new(big.Int).SetBytes(rightPad(sliceAfter(input, 96+bl, headLen), int(headLen)))

	iterCount := uint64(0)
	switch {
	case el <= 32 && expHead.Sign() == 0:
		iterCount = 0
	case el <= 32:
		iterCount = uint64(expHead.BitLen() - 1)
	default:
		iterCount = 8 * (el - 32)
		if b := bitLenOrZero(expHead); b > 1 {
			iterCount += uint64(b - 1)
		}
	}
	if iterCount == 0 {
		iterCount = 1
	}
	gas := new(big.Int).Mul(multComplexity, new(big.Int).SetUint64(iterCount))
	gas.Div(gas, big.NewInt(3))
	if gas.Cmp(big.NewInt(200)) < 0 {
		return 200
	}
	if !gas.IsUint64() {
		return ^uint64(0)
	}
	return gas.Uint64()
}

func bitLenOrZero(b *big.Int) int {
	if b.Sign() == 0 {
		return 0
	}
	return b.BitLen()
}

func sliceAfter(input []byte, start, length uint64) []byte {
	if start >= uint64(len(input)) || length == 0 {
		return nil
	}
	end := start + length
	if end > uint64(len(input)) {
		end = uint64(len(input))
	}
	return input[start:end]
}

func (m modexp) Run(input []byte) ([]byte, error) {
	baseLen, expLen, modLen := m.lengths(input)
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return nil, ErrInvalidInput
	}
	bl, el, ml := baseLen.Uint64(), expLen.Uint64(), modLen.Uint64()
	if bl == 0 && ml == 0 {
		return []byte{}, nil
	}

	base := new(big.Int).SetBytes(rightPad(sliceAfter(input, 96, bl), int(bl)))
	exp := new(big.Int).SetBytes(rightPad(sliceAfter(input, 96+bl, el), int(el)))
	mod := new(big.Int).SetBytes(rightPad(sliceAfter(input, 96+bl+el, ml), int(ml)))

	var result *big.Int
	if mod.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(base, exp, mod)
	}
	return common.LeftPadBytes(result.Bytes(), int(ml)), nil
}

// --- 0x06/0x07/0x08 BN128 (alt_bn128), EIP-196/197/1108 ---

type bn128Add struct{}

func (bn128Add) RequiredGas([]byte) uint64 { return 150 }

func (bn128Add) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)
	p1, err := decodeG1(input[0:64])
	if err != nil {
		return nil, err
	}
	p2, err := decodeG1(input[64:128])
	if err != nil {
		return nil, err
	}
	var res bn254.G1Affine
	res.Add(&p1, &p2)
	return encodeG1(res), nil
}

type bn128Mul struct{}

func (bn128Mul) RequiredGas([]byte) uint64 { return 6000 }

func (bn128Mul) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 96)
	p, err := decodeG1(input[0:64])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[64:96])
	var res bn254.G1Affine
	res.ScalarMultiplication(&p, scalar)
	return encodeG1(res), nil
}

type bn128Pairing struct{}

func (bn128Pairing) RequiredGas(input []byte) uint64 {
	k := uint64(len(input) / 192)
	return 45000 + 34000*k
}

func (bn128Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, ErrInvalidInput
	}
	k := len(input) / 192
	g1s := make([]bn254.G1Affine, 0, k)
	g2s := make([]bn254.G2Affine, 0, k)
	for i := 0; i < k; i++ {
		chunk := input[i*192 : (i+1)*192]
		p1, err := decodeG1(chunk[0:64])
		if err != nil {
			return nil, err
		}
		p2, err := decodeG2(chunk[64:192])
		if err != nil {
			return nil, err
		}
		g1s = append(g1s, p1)
		g2s = append(g2s, p2)
	}
	out := make([]byte, 32)
	if k == 0 {
		out[31] = 1
		return out, nil
	}
	ok, err := bn254.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if ok {
		out[31] = 1
	}
	return out, nil
}

func decodeG1(buf []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	p.X.SetBytes(buf[0:32])
	p.Y.SetBytes(buf[32:64])
	if isZeroG1(p) {
		return p, nil
	}
	if !p.IsOnCurve() {
		return p, ErrInvalidInput
	}
	return p, nil
}

func isZeroG1(p bn254.G1Affine) bool {
	return p.X.IsZero() && p.Y.IsZero()
}

func decodeG2(buf []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	// Ethereum orders G2 coordinates as (x_im, x_re, y_im, y_re); gnark's
	// fp2 element stores (A0=re, A1=im).
	p.X.A1.SetBytes(buf[0:32])
	p.X.A0.SetBytes(buf[32:64])
	p.Y.A1.SetBytes(buf[64:96])
	p.Y.A0.SetBytes(buf[96:128])
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return p, ErrInvalidInput
	}
	return p, nil
}

func encodeG1(p bn254.G1Affine) []byte {
	out := make([]byte, 64)
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[0:32], xb[:])
	copy(out[32:64], yb[:])
	return out
}
