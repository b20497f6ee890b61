// pedersen.go - Pedersen commitments to amounts.
//
// Commit(v, b) = b*G + v*H. H is derived from G by hash-to-curve, so no one
// knows the discrete log of H with respect to G; that is what makes the
// commitment binding.

package ringct

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"sync"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Amount is a confidential token amount.
type Amount = uint64

var (
	pedersenHOnce sync.Once
	pedersenH     bls12377.G1Affine
)

// GeneratorH returns the second Pedersen base point.
func GeneratorH() bls12377.G1Affine {
	pedersenHOnce.Do(func() {
		g := GeneratorG()
		pedersenH = hashToPoint(dstPedersenH, &g)
	})
	return pedersenH
}

// Commit computes b*G + v*H.
func Commit(value Amount, blinding *bls12377_fr.Element) bls12377.G1Affine {
	g := GeneratorG()
	h := GeneratorH()

	var bG, vH, c bls12377.G1Affine
	bG.ScalarMultiplication(&g, blinding.BigInt(new(big.Int)))
	vH.ScalarMultiplication(&h, new(big.Int).SetUint64(value))
	c.Add(&bG, &vH)
	return c
}

// RevealedCommitment is the secret opening of a public commitment: the
// amount and its blinding factor. It is never published; it travels to the
// output's new owner as their amount secrets.
type RevealedCommitment struct {
	Value    Amount
	Blinding bls12377_fr.Element
}

// NewRevealedCommitment draws a fresh blinding factor for value.
func NewRevealedCommitment(value Amount, rng io.Reader) (RevealedCommitment, error) {
	b, err := RandomScalar(rng)
	if err != nil {
		return RevealedCommitment{}, fmt.Errorf("blinding factor: %w", err)
	}
	return RevealedCommitment{Value: value, Blinding: b}, nil
}

// Commit re-derives the public commitment this opening belongs to.
func (r *RevealedCommitment) Commit() bls12377.G1Affine {
	return Commit(r.Value, &r.Blinding)
}

// Bytes returns a fixed-width encoding (amount big-endian, then blinding).
func (r *RevealedCommitment) Bytes() []byte {
	out := make([]byte, 8+ScalarSize)
	binary.BigEndian.PutUint64(out[:8], r.Value)
	b := r.Blinding.Bytes()
	copy(out[8:], b[:])
	return out
}
