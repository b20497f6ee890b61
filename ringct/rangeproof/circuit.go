// circuit.go - Range-proof circuit for Pedersen commitment openings.
//
// Proves, over BW6-761 with in-circuit BLS12-377 point arithmetic, that the
// public commitment equals Blinding*G + Value*H with Value fitting in 64
// bits. The commitment, G and H are public; the opening is private.

package rangeproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
)

// ValueBits bounds committed amounts to [0, 2^64).
const ValueBits = 64

// CircuitCommitment is the range-proof circuit.
type CircuitCommitment struct {
	// Public inputs
	Commitment sw_bls12377.G1Affine `gnark:",public"`
	G          sw_bls12377.G1Affine `gnark:",public"`
	H          sw_bls12377.G1Affine `gnark:",public"`

	// Private inputs
	Value    frontend.Variable
	Blinding frontend.Variable
}

func (c *CircuitCommitment) Define(api frontend.API) error {
	// Step 1: Value must fit in ValueBits bits.
	api.ToBinary(c.Value, ValueBits)

	// Step 2: Recompute the commitment (Blinding*G + Value*H).
	bG := new(sw_bls12377.G1Affine)
	bG.ScalarMul(api, c.G, c.Blinding)
	vH := new(sw_bls12377.G1Affine)
	vH.ScalarMul(api, c.H, c.Value)
	bG.AddAssign(api, *vH)

	// Step 3: It must match the public commitment.
	api.AssertIsEqual(c.Commitment.X, bG.X)
	api.AssertIsEqual(c.Commitment.Y, bG.Y)

	return nil
}
