// serialize.go - Canonical byte encoding of signed transactions.
//
// The encoding is what the transaction hash commits to, so it must be
// deterministic: fixed-width field elements and compressed points, counts
// as uvarints, no maps.

package ringct

import (
	"encoding/binary"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Bytes returns the canonical serialization of the transaction.
func (tx *RingCtTransaction) Bytes() []byte {
	var out []byte
	out = binary.AppendUvarint(out, uint64(len(tx.Mlsags)))
	for i := range tx.Mlsags {
		out = appendMlsag(out, &tx.Mlsags[i])
	}
	out = binary.AppendUvarint(out, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		out = appendPoint(out, &tx.Outputs[i].PublicKey)
		out = appendPoint(out, &tx.Outputs[i].Commitment)
		out = binary.AppendUvarint(out, uint64(len(tx.Outputs[i].RangeProof)))
		out = append(out, tx.Outputs[i].RangeProof...)
	}
	return out
}

// TransactionFromBytes decodes a transaction previously encoded with Bytes.
func TransactionFromBytes(data []byte) (*RingCtTransaction, error) {
	d := decoder{buf: data}

	numMlsags := d.uvarint()
	tx := &RingCtTransaction{}
	for i := uint64(0); i < numMlsags && !d.failed; i++ {
		var sig MlsagSignature
		d.scalar(&sig.C0)
		d.point(&sig.KeyImage)
		d.point(&sig.PseudoCommitment)
		ringLen := d.uvarint()
		for j := uint64(0); j < ringLen && !d.failed; j++ {
			var pk bls12377.G1Affine
			d.point(&pk)
			sig.Ring = append(sig.Ring, pk)
		}
		for j := uint64(0); j < ringLen && !d.failed; j++ {
			var resp [2]bls12377_fr.Element
			d.scalar(&resp[0])
			d.scalar(&resp[1])
			sig.Responses = append(sig.Responses, resp)
		}
		tx.Mlsags = append(tx.Mlsags, sig)
	}

	numOutputs := d.uvarint()
	for i := uint64(0); i < numOutputs && !d.failed; i++ {
		var op OutputProof
		d.point(&op.PublicKey)
		d.point(&op.Commitment)
		proofLen := d.uvarint()
		op.RangeProof = d.bytes(proofLen)
		tx.Outputs = append(tx.Outputs, op)
	}

	if d.failed || len(d.buf) != d.off {
		return nil, ErrDecodeTransaction
	}
	return tx, nil
}

func appendMlsag(out []byte, sig *MlsagSignature) []byte {
	out = appendScalar(out, &sig.C0)
	out = appendPoint(out, &sig.KeyImage)
	out = appendPoint(out, &sig.PseudoCommitment)
	out = binary.AppendUvarint(out, uint64(len(sig.Ring)))
	for i := range sig.Ring {
		out = appendPoint(out, &sig.Ring[i])
	}
	for i := range sig.Responses {
		out = appendScalar(out, &sig.Responses[i][0])
		out = appendScalar(out, &sig.Responses[i][1])
	}
	return out
}

func appendPoint(out []byte, p *bls12377.G1Affine) []byte {
	b := p.Bytes()
	return append(out, b[:]...)
}

func appendScalar(out []byte, s *bls12377_fr.Element) []byte {
	b := s.Bytes()
	return append(out, b[:]...)
}

// decoder is a cursor over the encoded bytes; any short read or malformed
// point poisons it.
type decoder struct {
	buf    []byte
	off    int
	failed bool
}

func (d *decoder) uvarint() uint64 {
	if d.failed {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.failed = true
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) bytes(n uint64) []byte {
	if d.failed || uint64(len(d.buf)-d.off) < n {
		d.failed = true
		return nil
	}
	out := append([]byte(nil), d.buf[d.off:d.off+int(n)]...)
	d.off += int(n)
	return out
}

func (d *decoder) point(p *bls12377.G1Affine) {
	raw := d.bytes(CompressedPointSize)
	if d.failed {
		return
	}
	if _, err := p.SetBytes(raw); err != nil {
		d.failed = true
	}
}

func (d *decoder) scalar(s *bls12377_fr.Element) {
	raw := d.bytes(ScalarSize)
	if d.failed {
		return
	}
	s.SetBytes(raw)
}
