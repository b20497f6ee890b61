// transaction.go - The signed RingCT transaction and its verification.

package ringct

import (
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"golang.org/x/crypto/sha3"
)

// OutputProof is a signed transaction output: the one-time public key it
// pays, the commitment hiding its amount and, optionally, a range proof
// that the commitment opens to an in-range value.
type OutputProof struct {
	PublicKey  bls12377.G1Affine
	Commitment bls12377.G1Affine
	RangeProof []byte
}

// RingCtTransaction is a fully signed transaction: one ring signature per
// input (each carrying a key image) and the ordered output commitments.
// Immutable once produced by RingCtMaterial.Sign.
type RingCtTransaction struct {
	Mlsags  []MlsagSignature
	Outputs []OutputProof
}

// KeyImages returns the inputs' key images in input order.
func (tx *RingCtTransaction) KeyImages() []KeyImage {
	kis := make([]KeyImage, len(tx.Mlsags))
	for i := range tx.Mlsags {
		kis[i] = tx.Mlsags[i].KeyImageBytes()
	}
	return kis
}

// Hash returns the transaction's content hash: SHA3-256 over the canonical
// serialization, signatures included. This is the hash spentbook
// authorities sign over.
func (tx *RingCtTransaction) Hash() [32]byte {
	return sha3.Sum256(tx.Bytes())
}

// signableMessage is what every ring signature signs: the outputs and the
// pseudo-output commitments. It cannot include the signatures themselves.
func signableMessage(outputs []OutputProof, pseudoOuts []bls12377.G1Affine) []byte {
	h := sha3.New256()
	h.Write([]byte("veilcash/ringct/tx-message/v1"))
	for i := range outputs {
		b := outputs[i].PublicKey.Bytes()
		h.Write(b[:])
		b = outputs[i].Commitment.Bytes()
		h.Write(b[:])
	}
	for i := range pseudoOuts {
		b := pseudoOuts[i].Bytes()
		h.Write(b[:])
	}
	return h.Sum(nil)
}

// message recomputes the signed message from the transaction itself.
func (tx *RingCtTransaction) message() []byte {
	pseudoOuts := make([]bls12377.G1Affine, len(tx.Mlsags))
	for i := range tx.Mlsags {
		pseudoOuts[i] = tx.Mlsags[i].PseudoCommitment
	}
	return signableMessage(tx.Outputs, pseudoOuts)
}

// Verify checks the transaction's cryptographic integrity given the
// attested public commitments of each input's ring, in input order:
//
//  1. one commitment list per input, each matching its ring's size;
//  2. key images unique across inputs;
//  3. every ring signature valid against the signed message;
//  4. balance: sum of pseudo-output commitments equals sum of output
//     commitments, which holds exactly when amounts are conserved.
//
// The commitment lists are positional; callers must order them to match
// tx.Mlsags.
func (tx *RingCtTransaction) Verify(publicCommitments [][]bls12377.G1Affine) error {
	if len(tx.Mlsags) == 0 {
		return ErrTransactionMustHaveAnInput
	}
	if len(publicCommitments) != len(tx.Mlsags) {
		return ErrCommitmentCountMismatch
	}

	seen := make(map[KeyImage]struct{}, len(tx.Mlsags))
	for i := range tx.Mlsags {
		ki := tx.Mlsags[i].KeyImageBytes()
		if _, dup := seen[ki]; dup {
			return ErrKeyImageNotUnique
		}
		seen[ki] = struct{}{}
	}

	msg := tx.message()
	for i := range tx.Mlsags {
		if err := tx.Mlsags[i].Verify(msg, publicCommitments[i]); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}

	var pseudoSum, outputSum bls12377.G1Affine
	for i := range tx.Mlsags {
		pseudoSum.Add(&pseudoSum, &tx.Mlsags[i].PseudoCommitment)
	}
	for i := range tx.Outputs {
		outputSum.Add(&outputSum, &tx.Outputs[i].Commitment)
	}
	if !pseudoSum.Equal(&outputSum) {
		return ErrBalanceCheckFailed
	}
	return nil
}
