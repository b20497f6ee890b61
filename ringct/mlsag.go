// mlsag.go - MLSAG ring signatures over BLS12-377.
//
// Two layers per ring member: the owner public key (with a key image, so a
// second spend of the same input is detectable) and the commitment offset
// against the input's pseudo-output commitment. The true member's offset is
// z*G with z = blinding - pseudoBlinding, which is exactly the relation the
// second layer proves knowledge of.

package ringct

import (
	"io"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/sha3"
)

// MlsagSignature is one input's ring signature as it appears in a signed
// transaction. The ring's public keys, the key image and the pseudo-output
// commitment are public; the ring's commitments are not carried here - they
// arrive attested inside spent proofs and are supplied at verification time.
type MlsagSignature struct {
	C0               bls12377_fr.Element
	Responses        [][2]bls12377_fr.Element
	KeyImage         bls12377.G1Affine
	Ring             []bls12377.G1Affine
	PseudoCommitment bls12377.G1Affine
}

// KeyImageBytes returns the key image in its map-key form.
func (s *MlsagSignature) KeyImageBytes() KeyImage {
	return NewKeyImage(&s.KeyImage)
}

// sign produces the MLSAG signature for this ring over msg.
func (m *MlsagMaterial) sign(msg []byte, pseudoBlinding *bls12377_fr.Element, pseudoOut bls12377.G1Affine, rng io.Reader) (MlsagSignature, error) {
	ring := m.RingPublicKeys()
	commitments := m.RingCommitments()
	n := len(ring)
	pi := m.pi

	sk := m.TrueInput.SecretKey
	truePk := ring[pi]
	keyImage := KeyImageFromSecret(&sk, &truePk)

	// z opens the true member's commitment offset: C_pi - C' = z*G.
	var z bls12377_fr.Element
	z.Sub(&m.TrueInput.RevealedCommitment.Blinding, pseudoBlinding)

	prefix := challengePrefix(msg, &keyImage, &pseudoOut, ring, commitments)
	g := GeneratorG()

	// Commitment phase at the true index.
	alpha1, err := RandomScalar(rng)
	if err != nil {
		return MlsagSignature{}, err
	}
	alpha2, err := RandomScalar(rng)
	if err != nil {
		return MlsagSignature{}, err
	}
	hpTrue := hashToPoint(dstKeyImage, &truePk)

	var l1, r1, l2 bls12377.G1Affine
	l1.ScalarMultiplication(&g, alpha1.BigInt(new(big.Int)))
	r1.ScalarMultiplication(&hpTrue, alpha1.BigInt(new(big.Int)))
	l2.ScalarMultiplication(&g, alpha2.BigInt(new(big.Int)))

	c := make([]bls12377_fr.Element, n)
	responses := make([][2]bls12377_fr.Element, n)
	c[(pi+1)%n] = challenge(prefix, &l1, &r1, &l2)

	// Simulation phase around the ring.
	for i := (pi + 1) % n; i != pi; i = (i + 1) % n {
		responses[i][0], err = RandomScalar(rng)
		if err != nil {
			return MlsagSignature{}, err
		}
		responses[i][1], err = RandomScalar(rng)
		if err != nil {
			return MlsagSignature{}, err
		}
		l1, r1, l2 = ringStep(&g, &ring[i], &commitments[i], &pseudoOut, &keyImage, &c[i], &responses[i])
		c[(i+1)%n] = challenge(prefix, &l1, &r1, &l2)
	}

	// Close the ring at the true index.
	var t bls12377_fr.Element
	t.Mul(&c[pi], &sk)
	responses[pi][0].Sub(&alpha1, &t)
	t.Mul(&c[pi], &z)
	responses[pi][1].Sub(&alpha2, &t)

	return MlsagSignature{
		C0:               c[0],
		Responses:        responses,
		KeyImage:         keyImage,
		Ring:             ring,
		PseudoCommitment: pseudoOut,
	}, nil
}

// Verify checks the ring signature over msg given the ring's attested
// public commitments (in ring order).
func (s *MlsagSignature) Verify(msg []byte, publicCommitments []bls12377.G1Affine) error {
	n := len(s.Ring)
	if n == 0 || len(s.Responses) != n {
		return ErrInvalidRingSignature
	}
	if len(publicCommitments) != n {
		return ErrCommitmentCountMismatch
	}
	if s.KeyImage.IsInfinity() || !s.KeyImage.IsInSubGroup() {
		return ErrInvalidRingSignature
	}

	prefix := challengePrefix(msg, &s.KeyImage, &s.PseudoCommitment, s.Ring, publicCommitments)
	g := GeneratorG()

	c := s.C0
	for i := 0; i < n; i++ {
		l1, r1, l2 := ringStep(&g, &s.Ring[i], &publicCommitments[i], &s.PseudoCommitment, &s.KeyImage, &c, &s.Responses[i])
		c = challenge(prefix, &l1, &r1, &l2)
	}
	if !c.Equal(&s.C0) {
		return ErrInvalidRingSignature
	}
	return nil
}

// ringStep recomputes one member's (L1, R1, L2) triple:
//
//	L1 = r0*G + c*PK_i
//	R1 = r0*Hp(PK_i) + c*KI
//	L2 = r1*G + c*(C_i - C')
func ringStep(g, pk, commitment, pseudoOut *bls12377.G1Affine, keyImage *bls12377.G1Affine, c *bls12377_fr.Element, resp *[2]bls12377_fr.Element) (l1, r1, l2 bls12377.G1Affine) {
	cBig := c.BigInt(new(big.Int))
	r0Big := resp[0].BigInt(new(big.Int))
	r1Big := resp[1].BigInt(new(big.Int))

	var t1, t2 bls12377.G1Affine

	t1.ScalarMultiplication(g, r0Big)
	t2.ScalarMultiplication(pk, cBig)
	l1.Add(&t1, &t2)

	hp := hashToPoint(dstKeyImage, pk)
	t1.ScalarMultiplication(&hp, r0Big)
	t2.ScalarMultiplication(keyImage, cBig)
	r1.Add(&t1, &t2)

	var offset bls12377.G1Affine
	offset.Sub(commitment, pseudoOut)
	t1.ScalarMultiplication(g, r1Big)
	t2.ScalarMultiplication(&offset, cBig)
	l2.Add(&t1, &t2)
	return l1, r1, l2
}

// challengePrefix binds everything ring-wide the challenge chain must cover:
// the message, the key image, the pseudo-output and both ring columns.
func challengePrefix(msg []byte, keyImage, pseudoOut *bls12377.G1Affine, ring, commitments []bls12377.G1Affine) []byte {
	h := sha3.New256()
	h.Write([]byte(dstChallenge))
	h.Write(msg)
	b := keyImage.Bytes()
	h.Write(b[:])
	b = pseudoOut.Bytes()
	h.Write(b[:])
	for i := range ring {
		b = ring[i].Bytes()
		h.Write(b[:])
	}
	for i := range commitments {
		b = commitments[i].Bytes()
		h.Write(b[:])
	}
	return h.Sum(nil)
}

// challenge hashes one step of the chain into a scalar.
func challenge(prefix []byte, l1, r1, l2 *bls12377.G1Affine) bls12377_fr.Element {
	b1 := l1.Bytes()
	b2 := r1.Bytes()
	b3 := l2.Bytes()
	return HashToScalar(dstChallenge, prefix, b1[:], b2[:], b3[:])
}
