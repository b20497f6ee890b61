// bls.go - Threshold BLS signatures over BLS12-377.
//
// Secret keys are shares of a random polynomial over fr; public keys are G2
// commitments to its coefficients. Signatures live in G1 (hash-to-curve of
// the message), so combining shares is Lagrange interpolation at zero over
// G1 points. Any threshold+1 valid shares combine to the same signature,
// regardless of which shares or in what order.

package bls

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

const dstSignature = "veilcash/bls/signature/v1"

// SizeOfPublicKey is the compressed G2 encoding size.
const SizeOfPublicKey = bls12377.SizeOfG2AffineCompressed

// PublicKey is a BLS public key (a G2 point).
type PublicKey struct {
	P bls12377.G2Affine
}

// Signature is a complete BLS signature (a G1 point).
type Signature struct {
	S bls12377.G1Affine
}

// SignatureShare is one authority's partial signature, tagged with its
// share index.
type SignatureShare struct {
	Index uint64
	S     bls12377.G1Affine
}

// SecretKeyShare is one authority's share of the set's secret key.
type SecretKeyShare struct {
	Index uint64
	Share bls12377_fr.Element
}

// SecretKeySet is the dealer-side secret: a random polynomial of degree
// threshold. Share i is the polynomial evaluated at i+1.
type SecretKeySet struct {
	coeffs []bls12377_fr.Element
}

// PublicKeySet is the public counterpart of a SecretKeySet: G2 commitments
// to the polynomial coefficients. Two proofs signed under different key
// sets must never be combined; Equal is the check for that.
type PublicKeySet struct {
	commitments []bls12377.G2Affine
}

// RandomSecretKeySet deals a fresh key set with the given threshold.
// threshold+1 signature shares are needed to combine.
func RandomSecretKeySet(threshold int, rng io.Reader) (*SecretKeySet, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("negative threshold %d", threshold)
	}
	coeffs := make([]bls12377_fr.Element, threshold+1)
	for i := range coeffs {
		s, err := randomScalar(rng)
		if err != nil {
			return nil, err
		}
		coeffs[i] = s
	}
	return &SecretKeySet{coeffs: coeffs}, nil
}

// Threshold returns the number of shares beyond which combination succeeds.
func (s *SecretKeySet) Threshold() int {
	return len(s.coeffs) - 1
}

// SecretKeyShare evaluates the polynomial at index+1.
func (s *SecretKeySet) SecretKeyShare(index uint64) SecretKeyShare {
	x := indexToScalar(index)
	var acc bls12377_fr.Element
	// Horner, highest coefficient first.
	for i := len(s.coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, &x)
		acc.Add(&acc, &s.coeffs[i])
	}
	return SecretKeyShare{Index: index, Share: acc}
}

// PublicKeys commits the polynomial coefficients to G2.
func (s *SecretKeySet) PublicKeys() PublicKeySet {
	_, _, _, g2 := bls12377.Generators()
	commitments := make([]bls12377.G2Affine, len(s.coeffs))
	for i := range s.coeffs {
		commitments[i].ScalarMultiplication(&g2, s.coeffs[i].BigInt(new(big.Int)))
	}
	return PublicKeySet{commitments: commitments}
}

// Threshold returns the degree of the committed polynomial.
func (p *PublicKeySet) Threshold() int {
	return len(p.commitments) - 1
}

// PublicKey returns the set's combined public key (the constant
// coefficient's commitment).
func (p *PublicKeySet) PublicKey() PublicKey {
	return PublicKey{P: p.commitments[0]}
}

// PublicKeyShare evaluates the committed polynomial at index+1, giving the
// public key a single share's signatures verify under.
func (p *PublicKeySet) PublicKeyShare(index uint64) PublicKey {
	x := indexToScalar(index)
	var accJac bls12377.G2Jac
	for i := len(p.commitments) - 1; i >= 0; i-- {
		accJac.ScalarMultiplication(&accJac, x.BigInt(new(big.Int)))
		var term bls12377.G2Jac
		term.FromAffine(&p.commitments[i])
		accJac.AddAssign(&term)
	}
	var acc bls12377.G2Affine
	acc.FromJacobian(&accJac)
	return PublicKey{P: acc}
}

// Bytes returns the canonical encoding of the set: the concatenated
// compressed coefficient commitments.
func (p *PublicKeySet) Bytes() []byte {
	out := make([]byte, 0, len(p.commitments)*SizeOfPublicKey)
	for i := range p.commitments {
		b := p.commitments[i].Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// PublicKeySetFromBytes decodes an encoding produced by Bytes.
func PublicKeySetFromBytes(data []byte) (PublicKeySet, error) {
	if len(data) == 0 || len(data)%SizeOfPublicKey != 0 {
		return PublicKeySet{}, fmt.Errorf("malformed public key set encoding (%d bytes)", len(data))
	}
	commitments := make([]bls12377.G2Affine, len(data)/SizeOfPublicKey)
	for i := range commitments {
		if _, err := commitments[i].SetBytes(data[i*SizeOfPublicKey : (i+1)*SizeOfPublicKey]); err != nil {
			return PublicKeySet{}, fmt.Errorf("coefficient %d: %w", i, err)
		}
	}
	return PublicKeySet{commitments: commitments}, nil
}

// Equal reports whether two sets commit to the same polynomial.
func (p *PublicKeySet) Equal(other *PublicKeySet) bool {
	return bytes.Equal(p.Bytes(), other.Bytes())
}

// SignShare signs msg with one authority's key share.
func (s *SecretKeyShare) SignShare(msg []byte) SignatureShare {
	point := hashToG1(msg)
	var sig bls12377.G1Affine
	sig.ScalarMultiplication(&point, s.Share.BigInt(new(big.Int)))
	return SignatureShare{Index: s.Index, S: sig}
}

// CombineSignatures interpolates threshold+1 (or more) shares at zero into
// the set's signature. Shares are deduplicated by index; distinct shares
// claiming the same index are rejected. Combination is order-independent.
func (p *PublicKeySet) CombineSignatures(shares []SignatureShare) (Signature, error) {
	byIndex := make(map[uint64]bls12377.G1Affine)
	indices := make([]uint64, 0, len(shares))
	for _, sh := range shares {
		if prev, ok := byIndex[sh.Index]; ok {
			if !prev.Equal(&sh.S) {
				return Signature{}, fmt.Errorf("conflicting signature shares for index %d", sh.Index)
			}
			continue
		}
		byIndex[sh.Index] = sh.S
		indices = append(indices, sh.Index)
	}
	need := p.Threshold() + 1
	if len(indices) < need {
		return Signature{}, fmt.Errorf("not enough signature shares: have %d, need %d", len(indices), need)
	}
	indices = indices[:need]

	var acc bls12377.G1Jac
	for _, i := range indices {
		lambda := lagrangeAtZero(i, indices)
		var term bls12377.G1Affine
		share := byIndex[i]
		term.ScalarMultiplication(&share, lambda.BigInt(new(big.Int)))
		var termJac bls12377.G1Jac
		termJac.FromAffine(&term)
		acc.AddAssign(&termJac)
	}
	var sig bls12377.G1Affine
	sig.FromJacobian(&acc)
	return Signature{S: sig}, nil
}

// Verify checks e(sig, G2) == e(H(msg), pk) via a product-of-pairings
// check.
func (pk *PublicKey) Verify(sig Signature, msg []byte) bool {
	point := hashToG1(msg)
	_, _, _, g2 := bls12377.Generators()
	var negG2 bls12377.G2Affine
	negG2.Neg(&g2)

	ok, err := bls12377.PairingCheck(
		[]bls12377.G1Affine{sig.S, point},
		[]bls12377.G2Affine{negG2, pk.P},
	)
	return err == nil && ok
}

// Bytes returns the compressed public key encoding.
func (pk *PublicKey) Bytes() []byte {
	b := pk.P.Bytes()
	return b[:]
}

// Equal reports point equality.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.P.Equal(&other.P)
}

// Bytes returns the compressed signature encoding.
func (s *Signature) Bytes() []byte {
	b := s.S.Bytes()
	return b[:]
}

// lagrangeAtZero computes the Lagrange coefficient for share index i over
// the given index set, evaluated at zero.
func lagrangeAtZero(i uint64, indices []uint64) bls12377_fr.Element {
	xi := indexToScalar(i)
	var num, den bls12377_fr.Element
	num.SetOne()
	den.SetOne()
	for _, j := range indices {
		if j == i {
			continue
		}
		xj := indexToScalar(j)
		num.Mul(&num, &xj)
		var diff bls12377_fr.Element
		diff.Sub(&xj, &xi)
		den.Mul(&den, &diff)
	}
	den.Inverse(&den)
	num.Mul(&num, &den)
	return num
}

// indexToScalar maps share index i to evaluation point i+1 (zero is the
// secret itself and must never be an evaluation point).
func indexToScalar(index uint64) bls12377_fr.Element {
	var x bls12377_fr.Element
	x.SetUint64(index + 1)
	return x
}

func hashToG1(msg []byte) bls12377.G1Affine {
	p, err := bls12377.HashToG1(msg, []byte(dstSignature))
	if err != nil {
		panic(fmt.Sprintf("hash to G1 failed: %v", err))
	}
	return p
}

func randomScalar(rng io.Reader) (bls12377_fr.Element, error) {
	var buf [2 * bls12377_fr.Bytes]byte
	var s bls12377_fr.Element
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return s, fmt.Errorf("scalar sampling failed: %w", err)
	}
	s.SetBytes(buf[:])
	return s, nil
}
