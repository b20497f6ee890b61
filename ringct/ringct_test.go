package ringct

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

// newTestTrueInput creates a spendable input of the given amount.
func newTestTrueInput(t *testing.T, amount Amount) TrueInput {
	t.Helper()
	sk, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	rc, err := NewRevealedCommitment(amount, rand.Reader)
	if err != nil {
		t.Fatalf("NewRevealedCommitment failed: %v", err)
	}
	return NewTrueInput(sk, rc)
}

// newTestDecoys creates n unrelated ring members.
func newTestDecoys(t *testing.T, n int) []DecoyInput {
	t.Helper()
	decoys := make([]DecoyInput, n)
	for i := range decoys {
		sk, err := RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		rc, err := NewRevealedCommitment(Amount(i+1)*7, rand.Reader)
		if err != nil {
			t.Fatalf("NewRevealedCommitment failed: %v", err)
		}
		decoys[i] = DecoyInput{PublicKey: PublicKeyFromSecret(&sk), Commitment: rc.Commit()}
	}
	return decoys
}

// newTestOutput creates an output paying a fresh key.
func newTestOutput(t *testing.T, amount Amount) Output {
	t.Helper()
	sk, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	return NewOutput(PublicKeyFromSecret(&sk), amount)
}

// signTestTx builds and signs a transaction spending the given inputs into
// the given outputs, each input hidden among decoysPerInput decoys. Returns
// the transaction and the per-input public ring commitments.
func signTestTx(t *testing.T, inputs []TrueInput, decoysPerInput int, outputs []Output) (*RingCtTransaction, [][]bls12377.G1Affine) {
	t.Helper()
	material := RingCtMaterial{Outputs: outputs}
	for _, in := range inputs {
		m, err := NewMlsagMaterial(in, newTestDecoys(t, decoysPerInput), rand.Reader)
		if err != nil {
			t.Fatalf("NewMlsagMaterial failed: %v", err)
		}
		material.Inputs = append(material.Inputs, m)
	}
	tx, revealed, err := material.Sign(rand.Reader)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(revealed) != len(outputs) {
		t.Fatalf("expected %d revealed commitments, got %d", len(outputs), len(revealed))
	}
	commitments := make([][]bls12377.G1Affine, len(material.Inputs))
	for i := range material.Inputs {
		commitments[i] = material.Inputs[i].RingCommitments()
	}
	return tx, commitments
}

func TestSignAndVerify(t *testing.T) {
	input := newTestTrueInput(t, 100)
	tx, commitments := signTestTx(t, []TrueInput{input}, 2, []Output{newTestOutput(t, 100)})

	if err := tx.Verify(commitments); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(tx.Mlsags) != 1 {
		t.Fatalf("expected 1 ring signature, got %d", len(tx.Mlsags))
	}
	ki := input.KeyImage()
	if got := tx.Mlsags[0].KeyImageBytes(); got != NewKeyImage(&ki) {
		t.Errorf("key image does not match the true input")
	}
}

func TestVerifyMultipleInputs(t *testing.T) {
	inputs := []TrueInput{
		newTestTrueInput(t, 60),
		newTestTrueInput(t, 40),
	}
	outputs := []Output{newTestOutput(t, 75), newTestOutput(t, 25)}
	tx, commitments := signTestTx(t, inputs, 3, outputs)

	if err := tx.Verify(commitments); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerifyRejectsUnbalancedAmounts(t *testing.T) {
	// Signing an unbalanced transaction succeeds; verification must not.
	input := newTestTrueInput(t, 100)
	tx, commitments := signTestTx(t, []TrueInput{input}, 2, []Output{newTestOutput(t, 90)})

	err := tx.Verify(commitments)
	if !errors.Is(err, ErrBalanceCheckFailed) {
		t.Fatalf("expected ErrBalanceCheckFailed, got %v", err)
	}
}

func TestVerifyRejectsWrongRingCommitments(t *testing.T) {
	input := newTestTrueInput(t, 100)
	tx, commitments := signTestTx(t, []TrueInput{input}, 2, []Output{newTestOutput(t, 100)})

	// Swap in a commitment that was never part of the ring material.
	rc, err := NewRevealedCommitment(100, rand.Reader)
	if err != nil {
		t.Fatalf("NewRevealedCommitment failed: %v", err)
	}
	commitments[0][0] = rc.Commit()

	err = tx.Verify(commitments)
	if !errors.Is(err, ErrInvalidRingSignature) {
		t.Fatalf("expected ErrInvalidRingSignature, got %v", err)
	}
}

func TestVerifyRejectsCommitmentCountMismatch(t *testing.T) {
	input := newTestTrueInput(t, 100)
	tx, commitments := signTestTx(t, []TrueInput{input}, 2, []Output{newTestOutput(t, 100)})

	if err := tx.Verify(nil); !errors.Is(err, ErrCommitmentCountMismatch) {
		t.Fatalf("expected ErrCommitmentCountMismatch for missing lists, got %v", err)
	}

	short := [][]bls12377.G1Affine{commitments[0][:2]}
	if err := tx.Verify(short); !errors.Is(err, ErrCommitmentCountMismatch) {
		t.Fatalf("expected ErrCommitmentCountMismatch for short ring, got %v", err)
	}
}

func TestVerifyRejectsDuplicateKeyImages(t *testing.T) {
	// Spending the same true input twice yields two identical key images.
	input := newTestTrueInput(t, 50)
	inputs := []TrueInput{input, input}
	tx, commitments := signTestTx(t, inputs, 2, []Output{newTestOutput(t, 100)})

	err := tx.Verify(commitments)
	if !errors.Is(err, ErrKeyImageNotUnique) {
		t.Fatalf("expected ErrKeyImageNotUnique, got %v", err)
	}
}

func TestVerifyRejectsEmptyTransaction(t *testing.T) {
	var tx RingCtTransaction
	if err := tx.Verify(nil); !errors.Is(err, ErrTransactionMustHaveAnInput) {
		t.Fatalf("expected ErrTransactionMustHaveAnInput, got %v", err)
	}
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	input := newTestTrueInput(t, 100)
	tx, commitments := signTestTx(t, []TrueInput{input}, 2, []Output{newTestOutput(t, 100)})

	// Redirect the payment to a different key; the signed message changes.
	sk, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	tx.Outputs[0].PublicKey = PublicKeyFromSecret(&sk)

	if err := tx.Verify(commitments); err == nil {
		t.Fatal("expected verification to fail after output tampering")
	}
}

func TestKeyImageDeterministic(t *testing.T) {
	sk, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	pk := PublicKeyFromSecret(&sk)
	a := KeyImageFromSecret(&sk, &pk)
	b := KeyImageFromSecret(&sk, &pk)
	if !a.Equal(&b) {
		t.Fatal("key image is not deterministic")
	}

	sk2, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	pk2 := PublicKeyFromSecret(&sk2)
	c := KeyImageFromSecret(&sk2, &pk2)
	if a.Equal(&c) {
		t.Fatal("distinct keys produced the same key image")
	}
}

func TestCommitmentIsBinding(t *testing.T) {
	rc, err := NewRevealedCommitment(42, rand.Reader)
	if err != nil {
		t.Fatalf("NewRevealedCommitment failed: %v", err)
	}
	same := Commit(42, &rc.Blinding)
	if got := rc.Commit(); !got.Equal(&same) {
		t.Fatal("commitment does not reproduce from its opening")
	}
	other := Commit(43, &rc.Blinding)
	if got := rc.Commit(); got.Equal(&other) {
		t.Fatal("commitments to different values collided")
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	inputs := []TrueInput{newTestTrueInput(t, 30), newTestTrueInput(t, 70)}
	outputs := []Output{newTestOutput(t, 100)}
	tx, commitments := signTestTx(t, inputs, 2, outputs)

	data := tx.Bytes()
	decoded, err := TransactionFromBytes(data)
	if err != nil {
		t.Fatalf("TransactionFromBytes failed: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), data) {
		t.Fatal("round trip changed the canonical serialization")
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatal("round trip changed the transaction hash")
	}
	if err := decoded.Verify(commitments); err != nil {
		t.Fatalf("decoded transaction failed verification: %v", err)
	}
}

func TestDeserializationRejectsGarbage(t *testing.T) {
	if _, err := TransactionFromBytes(nil); !errors.Is(err, ErrDecodeTransaction) {
		t.Fatalf("expected ErrDecodeTransaction for empty input, got %v", err)
	}
	if _, err := TransactionFromBytes([]byte{0xff, 0x01, 0x02}); !errors.Is(err, ErrDecodeTransaction) {
		t.Fatalf("expected ErrDecodeTransaction for garbage, got %v", err)
	}

	input := newTestTrueInput(t, 10)
	tx, _ := signTestTx(t, []TrueInput{input}, 1, []Output{newTestOutput(t, 10)})
	data := tx.Bytes()
	if _, err := TransactionFromBytes(append(data, 0x00)); !errors.Is(err, ErrDecodeTransaction) {
		t.Fatalf("expected ErrDecodeTransaction for trailing bytes, got %v", err)
	}
	if _, err := TransactionFromBytes(data[:len(data)-1]); !errors.Is(err, ErrDecodeTransaction) {
		t.Fatalf("expected ErrDecodeTransaction for truncation, got %v", err)
	}
}

func TestRingPlacementHidesTrueInput(t *testing.T) {
	input := newTestTrueInput(t, 5)
	m, err := NewMlsagMaterial(input, newTestDecoys(t, 4), rand.Reader)
	if err != nil {
		t.Fatalf("NewMlsagMaterial failed: %v", err)
	}
	ring := m.RingPublicKeys()
	if len(ring) != 5 {
		t.Fatalf("expected ring size 5, got %d", len(ring))
	}
	truePk := input.PublicKey()
	found := 0
	for i := range ring {
		if ring[i].Equal(&truePk) {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("true key should appear exactly once in the ring, found %d", found)
	}
	if len(m.RingCommitments()) != len(ring) {
		t.Fatal("ring commitments and public keys disagree on ring size")
	}
}
