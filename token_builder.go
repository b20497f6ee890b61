// token_builder.go - Aggregates spent proof shares and mints tokens.
//
// Produced by TransactionBuilder.Build; the caller takes the signed
// transaction to each spentbook authority, feeds the returned shares back
// in, then calls Build to combine, verify and mint. Pure computation: all
// network collection happens outside, and all randomness was already spent
// during signing.

package veilcash

import (
	"fmt"
	"sort"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/hzcrypt/veilcash/bls"
	"github.com/hzcrypt/veilcash/ringct"
)

// MintedOutput is one minted token together with the owner descriptor and
// amount secrets its recipient needs.
type MintedOutput struct {
	Token         Token
	Owner         OwnerOnce
	AmountSecrets ringct.RevealedCommitment
}

// TokenBuilder collects spent proof shares for a signed transaction and
// mints its output tokens once verification passes.
type TokenBuilder struct {
	Transaction         *ringct.RingCtTransaction
	RevealedCommitments []ringct.RevealedCommitment
	OutputOwnerMap      OutputOwnerMap
	Material            ringct.RingCtMaterial

	// shares per key image, deduplicated by exact content.
	spentProofShares map[ringct.KeyImage][]SpentProofShare
}

// NewTokenBuilder wraps a freshly signed transaction.
func NewTokenBuilder(tx *ringct.RingCtTransaction, revealed []ringct.RevealedCommitment, owners OutputOwnerMap, material ringct.RingCtMaterial) TokenBuilder {
	return TokenBuilder{
		Transaction:         tx,
		RevealedCommitments: revealed,
		OutputOwnerMap:      owners,
		Material:            material,
		spentProofShares:    map[ringct.KeyImage][]SpentProofShare{},
	}
}

// clone deep-copies the share map; the transaction and material are
// immutable and shared.
func (b TokenBuilder) clone() TokenBuilder {
	c := b
	c.spentProofShares = make(map[ringct.KeyImage][]SpentProofShare, len(b.spentProofShares))
	for k, v := range b.spentProofShares {
		c.spentProofShares[k] = append([]SpentProofShare(nil), v...)
	}
	return c
}

// Inputs returns the key images to present to the spentbook, in input
// order.
func (b TokenBuilder) Inputs() []ringct.KeyImage {
	return b.Transaction.KeyImages()
}

// AddSpentProofShare records one authority's share. Adding the same share
// twice is a no-op.
func (b TokenBuilder) AddSpentProofShare(share SpentProofShare) TokenBuilder {
	c := b.clone()
	ki := share.KeyImage()
	key := share.dedupKey()
	for i := range c.spentProofShares[ki] {
		if c.spentProofShares[ki][i].dedupKey() == key {
			return c
		}
	}
	c.spentProofShares[ki] = append(c.spentProofShares[ki], share)
	return c
}

// AddSpentProofShares records several shares.
func (b TokenBuilder) AddSpentProofShares(shares []SpentProofShare) TokenBuilder {
	c := b
	for _, s := range shares {
		c = c.AddSpentProofShare(s)
	}
	return c
}

// SpentProofs combines the collected shares into one spent proof per key
// image, in canonical key-image order.
//
// Every transaction input must have at least one share; all shares of one
// key image must announce the same spentbook key set; the threshold
// combination itself is delegated to the key set.
func (b TokenBuilder) SpentProofs() ([]SpentProof, error) {
	txHash := Hash(b.Transaction.Hash())

	// Inputs lacking shares fail first, with the key image the caller
	// still needs to source.
	for _, ki := range b.Transaction.KeyImages() {
		if len(b.spentProofShares[ki]) == 0 {
			return nil, MissingSpentProofShareError{KeyImage: ki}
		}
	}

	keyImages := make([]ringct.KeyImage, 0, len(b.spentProofShares))
	for ki := range b.spentProofShares {
		keyImages = append(keyImages, ki)
	}
	sort.Slice(keyImages, func(i, j int) bool { return keyImages[i].Less(keyImages[j]) })

	proofs := make([]SpentProof, 0, len(keyImages))
	for _, ki := range keyImages {
		shares := b.spentProofShares[ki]
		anyShare := &shares[0]

		sigShares := make([]bls.SignatureShare, 0, len(shares))
		for i := range shares {
			if !shares[i].SpentbookPKs.Equal(&anyShare.SpentbookPKs) {
				return nil, ErrPublicKeySetMismatch
			}
			sigShares = append(sigShares, shares[i].SigShare)
		}

		sig, err := anyShare.SpentbookPKs.CombineSignatures(sigShares)
		if err != nil {
			return nil, fmt.Errorf("combining signature shares for key image %s: %w", ki, err)
		}

		proofs = append(proofs, SpentProof{
			Content: SpentProofContent{
				KeyImage:          ki,
				TransactionHash:   txHash,
				PublicCommitments: anyShare.Content.PublicCommitments,
			},
			SpentbookPubKey: anyShare.SpentbookPKs.PublicKey(),
			SpentbookSig:    sig,
		})
	}
	return proofs, nil
}

// Build combines shares, verifies the transaction and mints one token per
// output.
//
// Steps:
//  1. Combine shares into spent proofs.
//  2. Verify the transaction with the full proof set; this runs once for
//     the whole transaction, not once per output.
//  3. Re-derive each output's commitment from its revealed opening and
//     match it against the signed outputs; anything but exactly one match
//     means amounts were not conserved during signing, which is an
//     internal inconsistency, not caller error.
//  4. Resolve each output's one-time owner.
//  5. Mint: each token carries the transaction and the complete proof set.
func (b TokenBuilder) Build(km KeyManager) ([]MintedOutput, error) {
	spentProofs, err := b.SpentProofs()
	if err != nil {
		return nil, err
	}

	if err := VerifyTransaction(km, b.Transaction, spentProofs); err != nil {
		return nil, err
	}

	outputCommitments := make([]bls12377.G1Affine, len(b.RevealedCommitments))
	for i := range b.RevealedCommitments {
		outputCommitments[i] = b.RevealedCommitments[i].Commit()
	}

	minted := make([]MintedOutput, 0, len(b.Transaction.Outputs))
	for i := range b.Transaction.Outputs {
		output := &b.Transaction.Outputs[i]

		owner, ok := b.OutputOwnerMap[ringct.CompressPublicKey(&output.PublicKey)]
		if !ok {
			return nil, ErrPublicKeyNotFound
		}

		matches := make([]ringct.RevealedCommitment, 0, 1)
		for j := range outputCommitments {
			if outputCommitments[j].Equal(&output.Commitment) {
				matches = append(matches, b.RevealedCommitments[j])
			}
		}
		if len(matches) != 1 {
			// Signing conserved amounts and committed to them; a failed
			// match here is a bug in this process, not recoverable input.
			panic(fmt.Sprintf(
				"invariant violation: output %d matched %d revealed commitments", i, len(matches)))
		}

		token := Token{
			Content: TokenContent{
				OwnerBase:       owner.OwnerBase,
				DerivationIndex: owner.DerivationIndex,
				AmountSecrets:   matches[0],
			},
			Transaction: *b.Transaction,
			SpentProofs: spentProofs,
		}
		minted = append(minted, MintedOutput{Token: token, Owner: owner, AmountSecrets: matches[0]})
	}
	return minted, nil
}
