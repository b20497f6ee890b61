// token.go - The minted bearer certificate.
//
// A token binds one transaction output to its owner descriptor and amount
// secrets, and carries the whole transaction plus the complete set of spent
// proofs for all of that transaction's inputs. Spentness is a property of
// the transaction, so every output of a multi-output transaction carries
// proofs for every input.

package veilcash

import (
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/fxamacker/cbor/v2"

	"github.com/hzcrypt/veilcash/ringct"
)

// TokenContent is the per-output part of a token: who owns it and what it
// is worth. The amount secrets are exactly the revealed commitment of the
// output; publishing them reveals the amount.
type TokenContent struct {
	OwnerBase       Owner
	DerivationIndex DerivationIndex
	AmountSecrets   ringct.RevealedCommitment
}

// OwnerOnce reassembles the one-time owner descriptor.
func (c *TokenContent) OwnerOnce() OwnerOnce {
	return OwnerOnce{OwnerBase: c.OwnerBase, DerivationIndex: c.DerivationIndex}
}

// DerivedPublicKey computes the output's one-time public key.
func (c *TokenContent) DerivedPublicKey() bls12377.G1Affine {
	return c.OwnerOnce().DerivedPublicKey()
}

// Token is the final unit of value, transferable by whoever can derive its
// one-time secret key.
type Token struct {
	Content     TokenContent
	Transaction ringct.RingCtTransaction
	SpentProofs []SpentProof
}

// Hash returns the token's content hash over its canonical encoding.
func (t *Token) Hash() Hash {
	data, err := t.MarshalCBOR()
	if err != nil {
		// The wire mapping below is total over well-formed tokens.
		panic(fmt.Sprintf("token encoding failed: %v", err))
	}
	return HashBytes([]byte("veilcash/token/v1"), data)
}

// AsTrueInput reconstructs the spendable input behind this token, deriving
// the one-time secret from the supplied owner base key. The base must hold
// a secret and match the token's owner descriptor.
func (t *Token) AsTrueInput(base Owner) (ringct.TrueInput, error) {
	basePk := base.PublicKey()
	contentPk := t.Content.OwnerBase.PublicKey()
	if !basePk.Equal(&contentPk) {
		return ringct.TrueInput{}, ErrDerivedKeyDoesNotMatch
	}
	oo := OwnerOnce{OwnerBase: base, DerivationIndex: t.Content.DerivationIndex}
	sk, err := oo.DerivedSecretKey()
	if err != nil {
		return ringct.TrueInput{}, err
	}
	return ringct.NewTrueInput(sk, t.Content.AmountSecrets), nil
}

// AsTrueInputBearer is AsTrueInput for bearer tokens, whose content carries
// the owner secret itself.
func (t *Token) AsTrueInputBearer() (ringct.TrueInput, error) {
	return t.AsTrueInput(t.Content.OwnerBase)
}

// KeyImage computes the key image that spending this token will reveal,
// letting the holder query the spentbook before attempting a spend.
func (t *Token) KeyImage(base Owner) (ringct.KeyImage, error) {
	in, err := t.AsTrueInput(base)
	if err != nil {
		return ringct.KeyImage{}, err
	}
	ki := in.KeyImage()
	return ringct.NewKeyImage(&ki), nil
}

// Verify checks the token's embedded evidence: its transaction and spent
// proofs verify under km, its content matches one of the transaction's
// outputs and the amount secrets open that output's commitment.
func (t *Token) Verify(km KeyManager) error {
	if err := VerifyTransaction(km, &t.Transaction, t.SpentProofs); err != nil {
		return err
	}

	derivedPk := t.Content.DerivedPublicKey()
	commitment := t.Content.AmountSecrets.Commit()
	for i := range t.Transaction.Outputs {
		if t.Transaction.Outputs[i].PublicKey.Equal(&derivedPk) &&
			t.Transaction.Outputs[i].Commitment.Equal(&commitment) {
			return nil
		}
	}
	return ErrTokenContentNotInTransaction
}

// Wire forms: fixed-width curve encodings inside CBOR containers.

type tokenWire struct {
	OwnerPublicKey  []byte           `cbor:"1,keyasint"`
	OwnerSecretKey  []byte           `cbor:"2,keyasint,omitempty"`
	DerivationIndex []byte           `cbor:"3,keyasint"`
	Amount          uint64           `cbor:"4,keyasint"`
	Blinding        []byte           `cbor:"5,keyasint"`
	Transaction     []byte           `cbor:"6,keyasint"`
	SpentProofs     []spentProofWire `cbor:"7,keyasint"`
}

type spentProofWire struct {
	KeyImage          []byte   `cbor:"1,keyasint"`
	TransactionHash   []byte   `cbor:"2,keyasint"`
	PublicCommitments [][]byte `cbor:"3,keyasint"`
	SpentbookPubKey   []byte   `cbor:"4,keyasint"`
	SpentbookSig      []byte   `cbor:"5,keyasint"`
}

// MarshalCBOR encodes the token, secrets included: tokens are bearer
// material and their encoding is as sensitive as a secret key.
func (t *Token) MarshalCBOR() ([]byte, error) {
	ownerPk := t.Content.OwnerBase.PublicKey()
	ownerPkBytes := ownerPk.Bytes()
	w := tokenWire{
		OwnerPublicKey:  ownerPkBytes[:],
		DerivationIndex: t.Content.DerivationIndex[:],
		Amount:          t.Content.AmountSecrets.Value,
		Transaction:     t.Transaction.Bytes(),
	}
	blinding := t.Content.AmountSecrets.Blinding.Bytes()
	w.Blinding = blinding[:]
	if sk, err := t.Content.OwnerBase.SecretKey(); err == nil {
		skBytes := sk.Bytes()
		w.OwnerSecretKey = skBytes[:]
	}
	for i := range t.SpentProofs {
		p := &t.SpentProofs[i]
		pw := spentProofWire{
			KeyImage:        p.Content.KeyImage[:],
			TransactionHash: p.Content.TransactionHash[:],
			SpentbookPubKey: p.SpentbookPubKey.Bytes(),
			SpentbookSig:    p.SpentbookSig.Bytes(),
		}
		for j := range p.Content.PublicCommitments {
			c := p.Content.PublicCommitments[j].Bytes()
			pw.PublicCommitments = append(pw.PublicCommitments, c[:])
		}
		w.SpentProofs = append(w.SpentProofs, pw)
	}
	return cbor.Marshal(w)
}

// UnmarshalCBOR decodes a token encoded with MarshalCBOR.
func (t *Token) UnmarshalCBOR(data []byte) error {
	var w tokenWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("token decode failed: %w", err)
	}

	var content TokenContent
	if len(w.OwnerSecretKey) > 0 {
		sk, err := scalarFromBytes(w.OwnerSecretKey)
		if err != nil {
			return fmt.Errorf("owner secret key: %w", err)
		}
		content.OwnerBase = NewOwnerFromSecret(sk)
	} else {
		pk, err := pointFromBytes(w.OwnerPublicKey)
		if err != nil {
			return fmt.Errorf("owner public key: %w", err)
		}
		content.OwnerBase = NewOwnerFromPublic(pk)
	}
	if len(w.DerivationIndex) != len(content.DerivationIndex) {
		return fmt.Errorf("derivation index: unexpected length %d", len(w.DerivationIndex))
	}
	copy(content.DerivationIndex[:], w.DerivationIndex)
	content.AmountSecrets.Value = w.Amount
	blinding, err := scalarFromBytes(w.Blinding)
	if err != nil {
		return fmt.Errorf("blinding: %w", err)
	}
	content.AmountSecrets.Blinding = blinding

	tx, err := ringct.TransactionFromBytes(w.Transaction)
	if err != nil {
		return err
	}

	proofs := make([]SpentProof, 0, len(w.SpentProofs))
	for i, pw := range w.SpentProofs {
		var p SpentProof
		if len(pw.KeyImage) != len(p.Content.KeyImage) {
			return fmt.Errorf("spent proof %d: malformed key image", i)
		}
		copy(p.Content.KeyImage[:], pw.KeyImage)
		if len(pw.TransactionHash) != len(p.Content.TransactionHash) {
			return fmt.Errorf("spent proof %d: malformed transaction hash", i)
		}
		copy(p.Content.TransactionHash[:], pw.TransactionHash)
		for _, cb := range pw.PublicCommitments {
			c, err := pointFromBytes(cb)
			if err != nil {
				return fmt.Errorf("spent proof %d commitment: %w", i, err)
			}
			p.Content.PublicCommitments = append(p.Content.PublicCommitments, c)
		}
		if _, err := p.SpentbookPubKey.P.SetBytes(pw.SpentbookPubKey); err != nil {
			return fmt.Errorf("spent proof %d public key: %w", i, err)
		}
		if _, err := p.SpentbookSig.S.SetBytes(pw.SpentbookSig); err != nil {
			return fmt.Errorf("spent proof %d signature: %w", i, err)
		}
		proofs = append(proofs, p)
	}

	t.Content = content
	t.Transaction = *tx
	t.SpentProofs = proofs
	return nil
}
