package veilcash_test

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/hzcrypt/veilcash"
	"github.com/hzcrypt/veilcash/mock"
)

// signedGenesisTx builds a genesis-spending transaction and its combined
// spent proofs against a fresh single-node section.
func signedGenesisTx(t *testing.T) (veilcash.TokenBuilder, []veilcash.SpentProof, []*mock.SpentbookNode, *mock.KeyManager) {
	t.Helper()
	section, _, km := newSection(t, 0, 1)
	genesis := veilcash.NewGenesisMaterial()
	for _, node := range section {
		node.RegisterOutput(genesis.TrueInput.PublicKey(), genesis.TrueInput.Commitment())
	}
	tokenBuilder, err := veilcash.NewTransactionBuilder().
		SetDecoysPerInput(0).
		AddTrueInput(genesis.TrueInput).
		AddOutputByAmount(veilcash.GenesisAmount, genesis.OwnerOnce).
		Build(rand.Reader)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	tokenBuilder = collectShares(t, tokenBuilder, section, 1)
	proofs, err := tokenBuilder.SpentProofs()
	if err != nil {
		t.Fatalf("SpentProofs failed: %v", err)
	}
	return tokenBuilder, proofs, section, km
}

func TestVerifyTransactionAccepts(t *testing.T) {
	tokenBuilder, proofs, _, km := signedGenesisTx(t)
	if err := veilcash.VerifyTransaction(km, tokenBuilder.Transaction, proofs); err != nil {
		t.Fatalf("VerifyTransaction failed: %v", err)
	}
}

func TestVerifyTransactionRejectsProofCountMismatch(t *testing.T) {
	tokenBuilder, proofs, _, km := signedGenesisTx(t)

	err := veilcash.VerifyTransaction(km, tokenBuilder.Transaction, nil)
	if !errors.Is(err, veilcash.ErrSpentProofInputLenMismatch) {
		t.Fatalf("expected ErrSpentProofInputLenMismatch for no proofs, got %v", err)
	}

	padded := append(append([]veilcash.SpentProof(nil), proofs...), proofs...)
	err = veilcash.VerifyTransaction(km, tokenBuilder.Transaction, padded)
	if !errors.Is(err, veilcash.ErrSpentProofInputLenMismatch) {
		t.Fatalf("expected ErrSpentProofInputLenMismatch for extra proofs, got %v", err)
	}
}

func TestVerifyTransactionRejectsForeignProof(t *testing.T) {
	tokenBuilder, _, _, km := signedGenesisTx(t)
	_, foreignProofs, _, _ := signedGenesisTx(t)

	// The foreign proof covers the same key image but binds a different
	// transaction hash.
	err := veilcash.VerifyTransaction(km, tokenBuilder.Transaction, foreignProofs)
	if err == nil {
		t.Fatal("expected a proof from another transaction to be rejected")
	}
}

func TestVerifyTransactionRejectsUncoveredKeyImage(t *testing.T) {
	tokenBuilder, proofs, _, km := signedGenesisTx(t)

	mutated := append([]veilcash.SpentProof(nil), proofs...)
	mutated[0].Content.KeyImage[0] ^= 1

	err := veilcash.VerifyTransaction(km, tokenBuilder.Transaction, mutated)
	if !errors.Is(err, veilcash.ErrSpentProofKeyImageMismatch) {
		t.Fatalf("expected ErrSpentProofKeyImageMismatch, got %v", err)
	}
}

func TestVerifyTransactionRejectsUntrustedAuthority(t *testing.T) {
	tokenBuilder, proofs, _, _ := signedGenesisTx(t)

	// A key manager that trusts nobody.
	stranger := mock.NewKeyManager()
	err := veilcash.VerifyTransaction(stranger, tokenBuilder.Transaction, proofs)
	if !errors.Is(err, veilcash.ErrUnrecognisedAuthority) {
		t.Fatalf("expected ErrUnrecognisedAuthority, got %v", err)
	}
}

func TestVerifyTransactionRejectsTamperedSignature(t *testing.T) {
	tokenBuilder, proofs, _, km := signedGenesisTx(t)

	// Re-point the proof's signature at different content.
	tampered := append([]veilcash.SpentProof(nil), proofs...)
	tampered[0].Content.PublicCommitments = nil

	err := veilcash.VerifyTransaction(km, tokenBuilder.Transaction, tampered)
	var invalid veilcash.InvalidSpentProofSignatureError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidSpentProofSignatureError, got %v", err)
	}
	if invalid.KeyImage != proofs[0].KeyImage() {
		t.Fatalf("error names key image %s, want %s", invalid.KeyImage, proofs[0].KeyImage())
	}
}

func TestSpentProofRejectsWrongTransactionHash(t *testing.T) {
	_, proofs, _, km := signedGenesisTx(t)

	err := proofs[0].Verify(veilcash.Hash{1, 2, 3}, km)
	if !errors.Is(err, veilcash.ErrInvalidTransactionHash) {
		t.Fatalf("expected ErrInvalidTransactionHash, got %v", err)
	}
}
