// builder.go - Assembles true inputs, decoys and outputs into a signed
// transaction.
//
// The builder has value semantics: every mutating method returns a new
// builder and leaves its receiver intact, so partially populated builders
// can be shared, retried and composed without aliasing surprises, and a
// failed Build never corrupts the state it was called on.

package veilcash

import (
	"fmt"
	"io"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/hzcrypt/veilcash/ringct"
	"github.com/hzcrypt/veilcash/ringct/rangeproof"
)

// DefaultDecoysPerInput is the ring size minus one a fresh builder targets.
const DefaultDecoysPerInput = 10

// OutputOwnerMap resolves an output's one-time public key to its owner
// descriptor.
type OutputOwnerMap map[ringct.PublicKeyBytes]OwnerOnce

// TransactionBuilder accumulates the material of one transaction.
type TransactionBuilder struct {
	trueInputs       []ringct.TrueInput
	material         ringct.RingCtMaterial
	outputOwnerMap   OutputOwnerMap
	availableDecoys  []ringct.DecoyInput
	decoysPerInput   int
	requireAllDecoys bool
	rangeProver      *rangeproof.Prover
}

// NewTransactionBuilder returns an empty builder: 10 decoys per input,
// strict allocation.
func NewTransactionBuilder() TransactionBuilder {
	return TransactionBuilder{
		outputOwnerMap:   OutputOwnerMap{},
		decoysPerInput:   DefaultDecoysPerInput,
		requireAllDecoys: true,
	}
}

// clone deep-copies the builder so mutations never reach earlier
// snapshots.
func (b TransactionBuilder) clone() TransactionBuilder {
	c := b
	c.trueInputs = append([]ringct.TrueInput(nil), b.trueInputs...)
	c.availableDecoys = append([]ringct.DecoyInput(nil), b.availableDecoys...)
	c.material.Inputs = append([]ringct.MlsagMaterial(nil), b.material.Inputs...)
	c.material.Outputs = append([]ringct.Output(nil), b.material.Outputs...)
	c.outputOwnerMap = make(OutputOwnerMap, len(b.outputOwnerMap))
	for k, v := range b.outputOwnerMap {
		c.outputOwnerMap[k] = v
	}
	return c
}

// SetDecoysPerInput sets how many decoys each true input's ring gets.
func (b TransactionBuilder) SetDecoysPerInput(n int) TransactionBuilder {
	c := b.clone()
	c.decoysPerInput = n
	return c
}

// SetRequireAllDecoys chooses between strict allocation (fail unless every
// input can get its full decoy count) and best-effort.
func (b TransactionBuilder) SetRequireAllDecoys(require bool) TransactionBuilder {
	c := b.clone()
	c.requireAllDecoys = require
	return c
}

// SetRangeProver attaches a range prover; when set, Build equips every
// output with a proof that its commitment opens to an in-range amount.
func (b TransactionBuilder) SetRangeProver(p *rangeproof.Prover) TransactionBuilder {
	c := b.clone()
	c.rangeProver = p
	return c
}

// AddDecoyInputs extends the pool of available decoys, deduplicating by
// public key against the pool already held. Decoys are not checked against
// true inputs here: a true input added later might collide with a decoy
// already pooled, so that check waits until Build.
func (b TransactionBuilder) AddDecoyInputs(decoys []ringct.DecoyInput) TransactionBuilder {
	c := b.clone()
	for _, d := range decoys {
		exists := false
		for i := range c.availableDecoys {
			if c.availableDecoys[i].PublicKey.Equal(&d.PublicKey) {
				exists = true
				break
			}
		}
		if !exists {
			c.availableDecoys = append(c.availableDecoys, d)
		}
	}
	return c
}

// AddInput adds a pre-assembled ring. Its true input is also tracked so the
// amount/owner accessors see it; Build deduplicates against it.
func (b TransactionBuilder) AddInput(m ringct.MlsagMaterial) TransactionBuilder {
	c := b.AddTrueInput(m.TrueInput)
	c.material.Inputs = append(c.material.Inputs, m)
	return c
}

// AddInputs adds several pre-assembled rings.
func (b TransactionBuilder) AddInputs(ms []ringct.MlsagMaterial) TransactionBuilder {
	c := b
	for _, m := range ms {
		c = c.AddInput(m)
	}
	return c
}

// AddTrueInput adds a spendable input; its decoys are allocated at Build.
func (b TransactionBuilder) AddTrueInput(t ringct.TrueInput) TransactionBuilder {
	c := b.clone()
	c.trueInputs = append(c.trueInputs, t)
	return c
}

// AddTrueInputs adds several spendable inputs.
func (b TransactionBuilder) AddTrueInputs(ts []ringct.TrueInput) TransactionBuilder {
	c := b
	for _, t := range ts {
		c = c.AddTrueInput(t)
	}
	return c
}

// AddInputToken spends a held token, deriving its one-time secret from the
// owner's base secret key.
func (b TransactionBuilder) AddInputToken(t *Token, base Owner) (TransactionBuilder, error) {
	in, err := t.AsTrueInput(base)
	if err != nil {
		return b, err
	}
	return b.AddTrueInput(in), nil
}

// AddInputTokenBearer spends a bearer token (one whose content carries the
// owner secret).
func (b TransactionBuilder) AddInputTokenBearer(t *Token) (TransactionBuilder, error) {
	in, err := t.AsTrueInputBearer()
	if err != nil {
		return b, err
	}
	return b.AddTrueInput(in), nil
}

// AddOutput adds an output and registers its one-time owner.
func (b TransactionBuilder) AddOutput(o ringct.Output, owner OwnerOnce) TransactionBuilder {
	c := b.clone()
	c.outputOwnerMap[ringct.CompressPublicKey(&o.PublicKey)] = owner
	c.material.Outputs = append(c.material.Outputs, o)
	return c
}

// AddOutputByAmount derives the output's one-time public key from the
// owner descriptor and adds it.
func (b TransactionBuilder) AddOutputByAmount(amount ringct.Amount, owner OwnerOnce) TransactionBuilder {
	pk := owner.DerivedPublicKey()
	return b.AddOutput(ringct.NewOutput(pk, amount), owner)
}

// OutputRecipient pairs an amount with its one-time owner, for the bulk
// output-adding path.
type OutputRecipient struct {
	Amount ringct.Amount
	Owner  OwnerOnce
}

// AddOutputsByAmount adds several outputs by amount and owner.
func (b TransactionBuilder) AddOutputsByAmount(outputs []OutputRecipient) TransactionBuilder {
	c := b
	for _, o := range outputs {
		c = c.AddOutputByAmount(o.Amount, o.Owner)
	}
	return c
}

// InputOwners lists the true inputs' public keys.
func (b TransactionBuilder) InputOwners() []bls12377.G1Affine {
	owners := make([]bls12377.G1Affine, len(b.trueInputs))
	for i := range b.trueInputs {
		owners[i] = b.trueInputs[i].PublicKey()
	}
	return owners
}

// InputsAmountSum totals the true inputs' amounts.
func (b TransactionBuilder) InputsAmountSum() ringct.Amount {
	var sum ringct.Amount
	for i := range b.trueInputs {
		sum += b.trueInputs[i].RevealedCommitment.Value
	}
	return sum
}

// OutputsAmountSum totals the outputs' amounts.
func (b TransactionBuilder) OutputsAmountSum() ringct.Amount {
	var sum ringct.Amount
	for i := range b.material.Outputs {
		sum += b.material.Outputs[i].Amount
	}
	return sum
}

// Inputs returns a read-only view of the true inputs.
func (b TransactionBuilder) Inputs() []ringct.TrueInput {
	return append([]ringct.TrueInput(nil), b.trueInputs...)
}

// Outputs returns a read-only view of the outputs.
func (b TransactionBuilder) Outputs() []ringct.Output {
	return append([]ringct.Output(nil), b.material.Outputs...)
}

// Build assembles rings, signs the transaction and hands everything to a
// TokenBuilder.
//
// Steps:
//  1. Drop pooled decoys whose public key equals a true input's (a decoy
//     that is secretly a true input corrupts the ring; exclusion is silent
//     because the caller could not have known).
//  2. Drop true inputs already represented in pre-assembled ring material,
//     so mixing AddInput and AddTrueInput paths never double-spends.
//  3. Under the strict policy, fail unless the pool covers
//     decoysPerInput*len(trueInputs).
//  4. Chunk the pool into rings of decoysPerInput, padding with empty
//     chunks under the lenient policy so every input still gets a ring.
//  5. Sign, and attach range proofs when a prover is set.
func (b TransactionBuilder) Build(rng io.Reader) (TokenBuilder, error) {
	material := ringct.RingCtMaterial{
		Inputs:  append([]ringct.MlsagMaterial(nil), b.material.Inputs...),
		Outputs: append([]ringct.Output(nil), b.material.Outputs...),
	}

	// Step 1: remove decoys that are actually true inputs.
	truePublicKeys := make([]bls12377.G1Affine, len(b.trueInputs))
	for i := range b.trueInputs {
		truePublicKeys[i] = b.trueInputs[i].PublicKey()
	}
	availableDecoys := make([]ringct.DecoyInput, 0, len(b.availableDecoys))
	for _, d := range b.availableDecoys {
		conflict := false
		for i := range truePublicKeys {
			if truePublicKeys[i].Equal(&d.PublicKey) {
				conflict = true
				break
			}
		}
		if !conflict {
			availableDecoys = append(availableDecoys, d)
		}
	}

	// Step 2: remove true inputs already present in ring material.
	trueInputs := make([]ringct.TrueInput, 0, len(b.trueInputs))
	for _, t := range b.trueInputs {
		pk := t.PublicKey()
		inMaterial := false
		for i := range material.Inputs {
			mpk := material.Inputs[i].TrueInput.PublicKey()
			if mpk.Equal(&pk) {
				inMaterial = true
				break
			}
		}
		if !inMaterial {
			trueInputs = append(trueInputs, t)
		}
	}

	// Step 3: strict decoy policy.
	numRequiredDecoys := len(trueInputs) * b.decoysPerInput
	if b.requireAllDecoys && len(availableDecoys) < numRequiredDecoys {
		return TokenBuilder{}, ErrInsufficientDecoys
	}

	// Step 4: chunk the pool; a zero chunk size yields no chunks.
	var decoyChunks [][]ringct.DecoyInput
	if b.decoysPerInput > 0 {
		for i := 0; i < len(availableDecoys); i += b.decoysPerInput {
			end := i + b.decoysPerInput
			if end > len(availableDecoys) {
				end = len(availableDecoys)
			}
			decoyChunks = append(decoyChunks, availableDecoys[i:end])
		}
	}
	// Pad with empty chunks so every input gets a ring. Only reachable
	// under the lenient policy (or when no decoys are required at all).
	for len(decoyChunks) < len(trueInputs) {
		decoyChunks = append(decoyChunks, nil)
	}

	for i, t := range trueInputs {
		m, err := ringct.NewMlsagMaterial(t, decoyChunks[i], rng)
		if err != nil {
			return TokenBuilder{}, fmt.Errorf("assembling ring for input %d: %w", i, err)
		}
		material.Inputs = append(material.Inputs, m)
	}

	// Step 5: sign.
	tx, revealedCommitments, err := material.Sign(rng)
	if err != nil {
		return TokenBuilder{}, fmt.Errorf("signing transaction: %w", err)
	}

	if b.rangeProver != nil {
		for i := range tx.Outputs {
			proof, err := b.rangeProver.Prove(
				revealedCommitments[i].Value,
				revealedCommitments[i].Blinding,
				tx.Outputs[i].Commitment,
			)
			if err != nil {
				return TokenBuilder{}, fmt.Errorf("range proof for output %d: %w", i, err)
			}
			tx.Outputs[i].RangeProof = proof
		}
	}

	ownerMap := make(OutputOwnerMap, len(b.outputOwnerMap))
	for k, v := range b.outputOwnerMap {
		ownerMap[k] = v
	}
	return NewTokenBuilder(tx, revealedCommitments, ownerMap, material), nil
}
