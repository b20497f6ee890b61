// owner.go - Owner base keys and one-time key derivation.
//
// An output never pays an owner's stable key directly. It pays a one-time
// key derived from the owner's base key and a fresh derivation index, so
// two outputs to the same owner are unlinkable on chain. The owner, knowing
// the index, derives the matching one-time secret.

package veilcash

import (
	"fmt"
	"io"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/hzcrypt/veilcash/ringct"
)

const dstDerivation = "veilcash/owner/derivation/v1"

// DerivationIndex is the per-output randomizer mixed into key derivation.
type DerivationIndex [32]byte

// NewDerivationIndex draws a fresh index from rng.
func NewDerivationIndex(rng io.Reader) (DerivationIndex, error) {
	var idx DerivationIndex
	if _, err := io.ReadFull(rng, idx[:]); err != nil {
		return idx, fmt.Errorf("derivation index: %w", err)
	}
	return idx, nil
}

// Owner is an owner base key: always a public key, with the secret half
// present only when we are the owner (absent when paying someone else).
type Owner struct {
	publicKey bls12377.G1Affine
	secretKey *bls12377_fr.Element
}

// NewOwnerFromSecret builds an owner holding both halves.
func NewOwnerFromSecret(sk bls12377_fr.Element) Owner {
	return Owner{publicKey: ringct.PublicKeyFromSecret(&sk), secretKey: &sk}
}

// NewOwnerFromPublic builds a public-only owner (sufficient to pay them).
func NewOwnerFromPublic(pk bls12377.G1Affine) Owner {
	return Owner{publicKey: pk}
}

// NewRandomOwner draws a fresh owner key pair from rng.
func NewRandomOwner(rng io.Reader) (Owner, error) {
	sk, err := ringct.RandomScalar(rng)
	if err != nil {
		return Owner{}, err
	}
	return NewOwnerFromSecret(sk), nil
}

// PublicKey returns the base public key.
func (o Owner) PublicKey() bls12377.G1Affine {
	return o.publicKey
}

// HasSecretKey reports whether the secret half is present.
func (o Owner) HasSecretKey() bool {
	return o.secretKey != nil
}

// SecretKey returns the base secret key, if held.
func (o Owner) SecretKey() (bls12377_fr.Element, error) {
	if o.secretKey == nil {
		return bls12377_fr.Element{}, ErrSecretKeyUnavailable
	}
	return *o.secretKey, nil
}

// Public strips the secret half, leaving a payable descriptor.
func (o Owner) Public() Owner {
	return Owner{publicKey: o.publicKey}
}

// OwnerOnce binds an owner base key to one derivation index: the one-time
// owner descriptor of a single output.
type OwnerOnce struct {
	OwnerBase       Owner
	DerivationIndex DerivationIndex
}

// NewOwnerOnce pairs owner with a fresh random index.
func NewOwnerOnce(owner Owner, rng io.Reader) (OwnerOnce, error) {
	idx, err := NewDerivationIndex(rng)
	if err != nil {
		return OwnerOnce{}, err
	}
	return OwnerOnce{OwnerBase: owner, DerivationIndex: idx}, nil
}

// derivationScalar hashes (base pk, index) into the additive tweak.
func (oo OwnerOnce) derivationScalar() bls12377_fr.Element {
	pk := oo.OwnerBase.PublicKey()
	pkBytes := pk.Bytes()
	return ringct.HashToScalar(dstDerivation, pkBytes[:], oo.DerivationIndex[:])
}

// DerivedPublicKey computes the one-time public key: basePk + tweak*G.
func (oo OwnerOnce) DerivedPublicKey() bls12377.G1Affine {
	tweak := oo.derivationScalar()
	tweakPoint := ringct.PublicKeyFromSecret(&tweak)
	base := oo.OwnerBase.PublicKey()
	var derived bls12377.G1Affine
	derived.Add(&base, &tweakPoint)
	return derived
}

// DerivedSecretKey computes the one-time secret key: baseSk + tweak.
// Fails when the base secret is not held.
func (oo OwnerOnce) DerivedSecretKey() (bls12377_fr.Element, error) {
	baseSk, err := oo.OwnerBase.SecretKey()
	if err != nil {
		return bls12377_fr.Element{}, err
	}
	tweak := oo.derivationScalar()
	var derived bls12377_fr.Element
	derived.Add(&baseSk, &tweak)
	return derived, nil
}
