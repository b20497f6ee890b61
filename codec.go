// codec.go - Byte-level decoding helpers shared by the wire mappings.

package veilcash

import (
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/hzcrypt/veilcash/ringct"
)

func pointFromBytes(data []byte) (bls12377.G1Affine, error) {
	var p bls12377.G1Affine
	if len(data) != ringct.CompressedPointSize {
		return p, fmt.Errorf("unexpected point encoding length %d", len(data))
	}
	if _, err := p.SetBytes(data); err != nil {
		return p, err
	}
	return p, nil
}

func scalarFromBytes(data []byte) (bls12377_fr.Element, error) {
	var s bls12377_fr.Element
	if len(data) != ringct.ScalarSize {
		return s, fmt.Errorf("unexpected scalar encoding length %d", len(data))
	}
	s.SetBytes(data)
	return s, nil
}
