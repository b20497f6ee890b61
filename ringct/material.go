// material.go - Unsigned transaction material: true inputs, decoys, outputs.
//
// A RingCtMaterial is everything needed to produce a signed transaction:
// one MlsagMaterial per input (the true input plus its anonymity ring) and
// the list of outputs. Sign consumes a randomness source once and yields the
// transaction together with the secret openings of its output commitments.

package ringct

import (
	"fmt"
	"io"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// TrueInput is a real, spendable input: the secret key controlling it and
// the opening of its commitment.
type TrueInput struct {
	SecretKey          bls12377_fr.Element
	RevealedCommitment RevealedCommitment
}

// NewTrueInput pairs a secret key with the opening of its commitment.
func NewTrueInput(sk bls12377_fr.Element, rc RevealedCommitment) TrueInput {
	return TrueInput{SecretKey: sk, RevealedCommitment: rc}
}

// PublicKey returns sk*G.
func (t *TrueInput) PublicKey() bls12377.G1Affine {
	return PublicKeyFromSecret(&t.SecretKey)
}

// KeyImage returns the deterministic double-spend tag of this input.
func (t *TrueInput) KeyImage() bls12377.G1Affine {
	pk := t.PublicKey()
	return KeyImageFromSecret(&t.SecretKey, &pk)
}

// Commitment returns the public commitment this input's ring entry carries.
func (t *TrueInput) Commitment() bls12377.G1Affine {
	return t.RevealedCommitment.Commit()
}

// DecoyInput is a ring member the signer does not own: a public key and its
// public commitment, nothing secret.
type DecoyInput struct {
	PublicKey  bls12377.G1Affine
	Commitment bls12377.G1Affine
}

// Output is an unsigned transaction output: who gets how much.
type Output struct {
	PublicKey bls12377.G1Affine
	Amount    Amount
}

// NewOutput builds an output paying amount to the (one-time) public key.
func NewOutput(pk bls12377.G1Affine, amount Amount) Output {
	return Output{PublicKey: pk, Amount: amount}
}

// MlsagMaterial is one input's ring: the true input hidden at a secret
// position among its decoys.
type MlsagMaterial struct {
	TrueInput   TrueInput
	DecoyInputs []DecoyInput

	// pi is the true input's position in the ring. Secret; leaking it
	// defeats the ring.
	pi int
}

// NewMlsagMaterial places trueInput at a uniformly random position among
// the decoys.
func NewMlsagMaterial(trueInput TrueInput, decoys []DecoyInput, rng io.Reader) (MlsagMaterial, error) {
	pi, err := randomIndex(len(decoys)+1, rng)
	if err != nil {
		return MlsagMaterial{}, err
	}
	return MlsagMaterial{
		TrueInput:   trueInput,
		DecoyInputs: append([]DecoyInput(nil), decoys...),
		pi:          pi,
	}, nil
}

// RingSize returns the number of ring members (decoys plus one).
func (m *MlsagMaterial) RingSize() int {
	return len(m.DecoyInputs) + 1
}

// RingPublicKeys returns the ring's public keys in ring order.
func (m *MlsagMaterial) RingPublicKeys() []bls12377.G1Affine {
	ring := make([]bls12377.G1Affine, 0, m.RingSize())
	for _, d := range m.DecoyInputs {
		ring = append(ring, d.PublicKey)
	}
	truePk := m.TrueInput.PublicKey()
	ring = append(ring[:m.pi], append([]bls12377.G1Affine{truePk}, ring[m.pi:]...)...)
	return ring
}

// RingCommitments returns the ring's public commitments in ring order.
// These are exactly the commitments a spentbook authority attests to in a
// spent proof.
func (m *MlsagMaterial) RingCommitments() []bls12377.G1Affine {
	cs := make([]bls12377.G1Affine, 0, m.RingSize())
	for _, d := range m.DecoyInputs {
		cs = append(cs, d.Commitment)
	}
	trueC := m.TrueInput.Commitment()
	cs = append(cs[:m.pi], append([]bls12377.G1Affine{trueC}, cs[m.pi:]...)...)
	return cs
}

// RingCtMaterial is the full unsigned transaction.
type RingCtMaterial struct {
	Inputs  []MlsagMaterial
	Outputs []Output
}

// Sign produces the signed transaction and, for each output, the secret
// opening of its commitment (in output order).
//
// Steps:
//  1. Draw a blinding factor per output and commit to each amount.
//  2. Choose pseudo-output blindings so their sum equals the sum of the
//     output blindings; commit each input's amount under its pseudo
//     blinding. This is what makes sum(pseudo-outs) == sum(output
//     commitments) hold exactly when amounts are conserved.
//  3. Hash outputs and pseudo-outs into the message every ring signature
//     signs.
//  4. Produce one MLSAG signature per input.
func (m *RingCtMaterial) Sign(rng io.Reader) (*RingCtTransaction, []RevealedCommitment, error) {
	if len(m.Inputs) == 0 {
		return nil, nil, ErrTransactionMustHaveAnInput
	}

	// Step 1: output commitments and their openings.
	revealed := make([]RevealedCommitment, len(m.Outputs))
	outputs := make([]OutputProof, len(m.Outputs))
	var outBlindingSum bls12377_fr.Element
	for i, out := range m.Outputs {
		rc, err := NewRevealedCommitment(out.Amount, rng)
		if err != nil {
			return nil, nil, err
		}
		revealed[i] = rc
		outputs[i] = OutputProof{PublicKey: out.PublicKey, Commitment: rc.Commit()}
		outBlindingSum.Add(&outBlindingSum, &rc.Blinding)
	}

	// Step 2: pseudo-output blindings summing to the output blinding sum.
	pseudoBlindings := make([]bls12377_fr.Element, len(m.Inputs))
	var partialSum bls12377_fr.Element
	for i := 0; i < len(m.Inputs)-1; i++ {
		b, err := RandomScalar(rng)
		if err != nil {
			return nil, nil, err
		}
		pseudoBlindings[i] = b
		partialSum.Add(&partialSum, &b)
	}
	pseudoBlindings[len(m.Inputs)-1].Sub(&outBlindingSum, &partialSum)

	pseudoOuts := make([]bls12377.G1Affine, len(m.Inputs))
	for i, in := range m.Inputs {
		pseudoOuts[i] = Commit(in.TrueInput.RevealedCommitment.Value, &pseudoBlindings[i])
	}

	// Step 3: the signed message binds outputs and pseudo-outs.
	msg := signableMessage(outputs, pseudoOuts)

	// Step 4: one ring signature per input.
	mlsags := make([]MlsagSignature, len(m.Inputs))
	for i := range m.Inputs {
		sig, err := m.Inputs[i].sign(msg, &pseudoBlindings[i], pseudoOuts[i], rng)
		if err != nil {
			return nil, nil, fmt.Errorf("signing input %d: %w", i, err)
		}
		mlsags[i] = sig
	}

	return &RingCtTransaction{Mlsags: mlsags, Outputs: outputs}, revealed, nil
}

// randomIndex draws a uniform index in [0, n) from rng.
func randomIndex(n int, rng io.Reader) (int, error) {
	if n <= 1 {
		return 0, nil
	}
	s, err := RandomScalar(rng)
	if err != nil {
		return 0, err
	}
	var idx big.Int
	idx.Mod(s.BigInt(new(big.Int)), big.NewInt(int64(n)))
	return int(idx.Int64()), nil
}
