// verification.go - Stateless verification of a transaction plus its spent
// proofs, beyond what the ring-signature layer checks on its own.

package veilcash

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/hzcrypt/veilcash/ringct"
)

// VerifyTransaction checks a signed transaction against a candidate set of
// spent proofs.
//
// The verifier relies on the caller having obtained the spentbook's public
// keys (held by the KeyManager) in a trusted way; a proof only verifies if
// the key manager recognises the authority that signed it.
//
// Steps, cheapest first:
//
//  1. One spent proof per input, no more, no fewer.
//  2. Output one-time public keys unique across the transaction.
//  3. Every proof's key image present among the inputs' key images.
//  4. Every proof cryptographically valid against the transaction hash.
//  5. Proofs re-ordered to the inputs' order: proofs are collected per key
//     image with no inherent order, but the ring-signature verification
//     below is positional, so this reconciliation is load-bearing.
//  6. The ordered attested commitments handed to the transaction's own
//     cryptographic verification (ring signatures and value balance).
func VerifyTransaction(km KeyManager, tx *ringct.RingCtTransaction, spentProofs []SpentProof) error {
	// Step 1: count.
	if len(spentProofs) != len(tx.Mlsags) {
		return ErrSpentProofInputLenMismatch
	}

	// Step 2: output key uniqueness.
	outputKeys := make(map[ringct.PublicKeyBytes]struct{}, len(tx.Outputs))
	for i := range tx.Outputs {
		outputKeys[ringct.CompressPublicKey(&tx.Outputs[i].PublicKey)] = struct{}{}
	}
	if len(outputKeys) != len(tx.Outputs) {
		return ErrPublicKeyNotUniqueAcrossOutputs
	}

	// Step 3: coverage.
	inputPosition := make(map[ringct.KeyImage]int, len(tx.Mlsags))
	for i := range tx.Mlsags {
		inputPosition[tx.Mlsags[i].KeyImageBytes()] = i
	}
	for i := range spentProofs {
		if _, ok := inputPosition[spentProofs[i].KeyImage()]; !ok {
			return ErrSpentProofKeyImageMismatch
		}
	}

	// Step 4: per-proof verification.
	txHash := Hash(tx.Hash())
	for i := range spentProofs {
		if err := spentProofs[i].Verify(txHash, km); err != nil {
			return err
		}
	}

	// Step 5: reconcile proof order with input order.
	ordered := make([]*SpentProof, len(tx.Mlsags))
	for i := range spentProofs {
		pos := inputPosition[spentProofs[i].KeyImage()]
		if ordered[pos] != nil {
			// Two proofs for one input; with the count check above that
			// leaves some other input uncovered.
			return ErrSpentProofKeyImageMismatch
		}
		ordered[pos] = &spentProofs[i]
	}

	// Step 6: positional cryptographic verification.
	publicCommitments := make([][]bls12377.G1Affine, len(ordered))
	for i := range ordered {
		publicCommitments[i] = ordered[i].PublicCommitments()
	}
	return tx.Verify(publicCommitments)
}
