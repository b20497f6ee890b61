// spent_proof.go - Spentbook attestations: per-authority shares and the
// combined proofs they aggregate into.

package veilcash

import (
	"encoding/binary"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/hzcrypt/veilcash/bls"
	"github.com/hzcrypt/veilcash/ringct"
)

// SpentProofContent is the signed payload of a spent proof: which key image
// was spent, in which transaction, and the public commitments of the spent
// ring (the material the transaction's positional verification consumes).
type SpentProofContent struct {
	KeyImage          ringct.KeyImage
	TransactionHash   Hash
	PublicCommitments []bls12377.G1Affine
}

// Hash returns the message a spentbook authority signs.
func (c *SpentProofContent) Hash() Hash {
	buf := make([]byte, 0, len(c.KeyImage)+len(c.TransactionHash)+len(c.PublicCommitments)*ringct.CompressedPointSize)
	buf = append(buf, c.KeyImage[:]...)
	buf = append(buf, c.TransactionHash[:]...)
	buf = binary.AppendUvarint(buf, uint64(len(c.PublicCommitments)))
	for i := range c.PublicCommitments {
		b := c.PublicCommitments[i].Bytes()
		buf = append(buf, b[:]...)
	}
	return HashBytes([]byte("veilcash/spent-proof-content/v1"), buf)
}

// SpentProofShare is one authority's partial attestation: the content, the
// authority set it belongs to, and its signature share over the content
// hash.
type SpentProofShare struct {
	Content      SpentProofContent
	SpentbookPKs bls.PublicKeySet
	SigShare     bls.SignatureShare
}

// KeyImage returns the key image this share attests to.
func (s *SpentProofShare) KeyImage() ringct.KeyImage {
	return s.Content.KeyImage
}

// dedupKey identifies a share by exact content, for idempotent collection.
func (s *SpentProofShare) dedupKey() Hash {
	contentHash := s.Content.Hash()
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], s.SigShare.Index)
	sigBytes := s.SigShare.S.Bytes()
	return HashBytes(contentHash[:], s.SpentbookPKs.Bytes(), idx[:], sigBytes[:])
}

// SpentProof is a complete, independently verifiable attestation that a key
// image was spent in a given transaction, signed by a threshold of the
// spentbook's authorities.
type SpentProof struct {
	Content         SpentProofContent
	SpentbookPubKey bls.PublicKey
	SpentbookSig    bls.Signature
}

// KeyImage returns the spent key image.
func (p *SpentProof) KeyImage() ringct.KeyImage {
	return p.Content.KeyImage
}

// PublicCommitments returns the attested commitments of the spent ring.
func (p *SpentProof) PublicCommitments() []bls12377.G1Affine {
	return p.Content.PublicCommitments
}

// Verify checks this proof against the transaction under verification:
// the proof must bind the same transaction hash, the signing key must be a
// trusted authority per the key manager, and the combined signature must
// verify over the content hash.
func (p *SpentProof) Verify(txHash Hash, km KeyManager) error {
	if p.Content.TransactionHash != txHash {
		return ErrInvalidTransactionHash
	}
	if err := km.VerifyAuthority(p.SpentbookPubKey); err != nil {
		return err
	}
	contentHash := p.Content.Hash()
	if !p.SpentbookPubKey.Verify(p.SpentbookSig, contentHash[:]) {
		return InvalidSpentProofSignatureError{KeyImage: p.Content.KeyImage}
	}
	return nil
}
