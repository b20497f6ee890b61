// keys.go - Key material and curve helpers for the ring-confidential-transaction layer.
//
// All group operations run on BLS12-377 G1; scalars live in its fr field.
// Key images are deterministic per secret key, which is what makes them
// usable as double-spend tags.

package ringct

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/sha3"
)

// CompressedPointSize is the size of a compressed G1 point encoding.
const CompressedPointSize = bls12377.SizeOfG1AffineCompressed

// ScalarSize is the size of an fr scalar encoding.
const ScalarSize = bls12377_fr.Bytes

// Domain separation tags. Changing any of these changes every key image,
// commitment and challenge in the system.
const (
	dstKeyImage  = "veilcash/ringct/key-image/v1"
	dstPedersenH = "veilcash/ringct/pedersen-h/v1"
	dstChallenge = "veilcash/ringct/mlsag-challenge/v1"
)

// PublicKeyBytes is the compressed encoding of a public key, usable as a
// map key with stable byte-wise ordering.
type PublicKeyBytes [CompressedPointSize]byte

// KeyImage is the compressed encoding of a key image point. Identical every
// time the same input is spent; distinct key images for distinct inputs.
type KeyImage [CompressedPointSize]byte

// CompressPublicKey returns the map-key form of a public key point.
func CompressPublicKey(p *bls12377.G1Affine) PublicKeyBytes {
	return PublicKeyBytes(p.Bytes())
}

// NewKeyImage returns the map-key form of a key image point.
func NewKeyImage(p *bls12377.G1Affine) KeyImage {
	return KeyImage(p.Bytes())
}

// Point decodes the key image back into a G1 point.
func (k KeyImage) Point() (bls12377.G1Affine, error) {
	var p bls12377.G1Affine
	if _, err := p.SetBytes(k[:]); err != nil {
		return p, fmt.Errorf("key image decode failed: %w", err)
	}
	return p, nil
}

func (k KeyImage) String() string {
	return hex.EncodeToString(k[:])
}

// Less gives the canonical byte-wise ordering used whenever key images
// index a collection.
func (k KeyImage) Less(other KeyImage) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

func (p PublicKeyBytes) String() string {
	return hex.EncodeToString(p[:])
}

// RandomScalar draws a uniform fr scalar from rng. 64 bytes are drawn and
// reduced so the output has negligible bias.
func RandomScalar(rng io.Reader) (bls12377_fr.Element, error) {
	var buf [2 * ScalarSize]byte
	var s bls12377_fr.Element
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return s, fmt.Errorf("scalar sampling failed: %w", err)
	}
	s.SetBytes(buf[:])
	return s, nil
}

// GeneratorG returns the fixed G1 base point.
func GeneratorG() bls12377.G1Affine {
	_, _, g1Aff, _ := bls12377.Generators()
	return g1Aff
}

// PublicKeyFromSecret computes sk*G.
func PublicKeyFromSecret(sk *bls12377_fr.Element) bls12377.G1Affine {
	var pk bls12377.G1Affine
	g := GeneratorG()
	pk.ScalarMultiplication(&g, sk.BigInt(new(big.Int)))
	return pk
}

// KeyImageFromSecret computes sk*Hp(pk), the key image of the key pair.
func KeyImageFromSecret(sk *bls12377_fr.Element, pk *bls12377.G1Affine) bls12377.G1Affine {
	base := hashToPoint(dstKeyImage, pk)
	var ki bls12377.G1Affine
	ki.ScalarMultiplication(&base, sk.BigInt(new(big.Int)))
	return ki
}

// hashToPoint hashes a point's compressed encoding onto G1 under the given
// domain tag.
func hashToPoint(dst string, p *bls12377.G1Affine) bls12377.G1Affine {
	b := p.Bytes()
	h, err := bls12377.HashToG1(b[:], []byte(dst))
	if err != nil {
		// HashToG1 only fails on malformed expander parameters, which are
		// fixed at compile time here.
		panic(fmt.Sprintf("hash to G1 failed: %v", err))
	}
	return h
}

// HashToScalar hashes arbitrary data into an fr scalar under a domain tag.
func HashToScalar(domain string, data ...[]byte) bls12377_fr.Element {
	h := sha3.New256()
	h.Write([]byte(domain))
	for _, d := range data {
		h.Write(d)
	}
	// Widen to 64 bytes before reduction to keep the output uniform.
	first := h.Sum(nil)
	h.Reset()
	h.Write([]byte(domain))
	h.Write([]byte("ext"))
	h.Write(first)
	second := h.Sum(nil)

	var s bls12377_fr.Element
	s.SetBytes(append(first, second...))
	return s
}
