package mock

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/hzcrypt/veilcash"
	"github.com/hzcrypt/veilcash/ringct"
)

// signedGenesisSpend builds a signed transaction spending the genesis
// input, registered with every node of the section.
func signedGenesisSpend(t *testing.T, section []*SpentbookNode) (*ringct.RingCtTransaction, ringct.KeyImage) {
	t.Helper()
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
	return tokenBuilder.Transaction, tokenBuilder.Inputs()[0]
}

func TestSectionRequiresQuorumCapacity(t *testing.T) {
	if _, _, err := NewSection(2, 2, rand.Reader); err == nil {
		t.Fatal("expected error for a section too small for its threshold")
	}
	if _, _, err := NewSection(1, 2, rand.Reader); err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
}

func TestLogSpentIssuesVerifiableShare(t *testing.T) {
	section, pks, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	tx, ki := signedGenesisSpend(t, section)

	share, err := section[0].LogSpent(ki, tx)
	if err != nil {
		t.Fatalf("LogSpent failed: %v", err)
	}
	if share.KeyImage() != ki {
		t.Fatal("share names the wrong key image")
	}
	if !share.SpentbookPKs.Equal(&pks) {
		t.Fatal("share carries the wrong key set")
	}
	if share.Content.TransactionHash != veilcash.Hash(tx.Hash()) {
		t.Fatal("share binds the wrong transaction hash")
	}
	if got, want := len(share.Content.PublicCommitments), len(tx.Mlsags[0].Ring); got != want {
		t.Fatalf("share attests %d commitments for a ring of %d", got, want)
	}
}

func TestLogSpentIsIdempotent(t *testing.T) {
	section, _, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	tx, ki := signedGenesisSpend(t, section)

	first, err := section[0].LogSpent(ki, tx)
	if err != nil {
		t.Fatalf("LogSpent failed: %v", err)
	}
	second, err := section[0].LogSpent(ki, tx)
	if err != nil {
		t.Fatalf("retried LogSpent failed: %v", err)
	}
	if !first.SigShare.S.Equal(&second.SigShare.S) {
		t.Fatal("retrying the same spend changed the share")
	}
}

func TestLogSpentRejectsDoubleSpend(t *testing.T) {
	section, _, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	tx, ki := signedGenesisSpend(t, section)
	if _, err := section[0].LogSpent(ki, tx); err != nil {
		t.Fatalf("LogSpent failed: %v", err)
	}

	// A second transaction spending the same key image.
	genesis := veilcash.NewGenesisMaterial()
	tokenBuilder, err := veilcash.NewTransactionBuilder().
		SetDecoysPerInput(0).
		AddTrueInput(genesis.TrueInput).
		AddOutputByAmount(veilcash.GenesisAmount, genesis.OwnerOnce).
		Build(rand.Reader)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	_, err = section[0].LogSpent(ki, tokenBuilder.Transaction)
	if err == nil || !strings.Contains(err.Error(), "already spent") {
		t.Fatalf("expected double spend rejection, got %v", err)
	}
}

func TestLogSpentRejectsUnknownRingMember(t *testing.T) {
	section, _, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}

	// Build a spend whose input was never registered with the node.
	genesis := veilcash.NewGenesisMaterial()
	tokenBuilder, err := veilcash.NewTransactionBuilder().
		SetDecoysPerInput(0).
		AddTrueInput(genesis.TrueInput).
		AddOutputByAmount(veilcash.GenesisAmount, genesis.OwnerOnce).
		Build(rand.Reader)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ki := tokenBuilder.Inputs()[0]
	if _, err := section[0].LogSpent(ki, tokenBuilder.Transaction); err == nil {
		t.Fatal("expected rejection of an unregistered ring member")
	}
}

func TestLogSpentRejectsForeignKeyImage(t *testing.T) {
	section, _, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	tx, _ := signedGenesisSpend(t, section)

	if _, err := section[0].LogSpent(ringct.KeyImage{1, 2, 3}, tx); err == nil {
		t.Fatal("expected rejection of a key image the transaction does not spend")
	}
}

func TestLogSpentLearnsTransactionOutputs(t *testing.T) {
	section, _, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	tx, ki := signedGenesisSpend(t, section)
	if _, err := section[0].LogSpent(ki, tx); err != nil {
		t.Fatalf("LogSpent failed: %v", err)
	}

	// The node now knows the genesis output and can attest a ring that
	// includes it.
	outPk := ringct.CompressPublicKey(&tx.Outputs[0].PublicKey)
	if _, ok := section[0].registry[outPk]; !ok {
		t.Fatal("node did not learn the transaction's outputs")
	}
}

func TestKeyManagerTrust(t *testing.T) {
	_, pks, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	km := NewKeyManager(pks.PublicKey())
	if err := km.VerifyAuthority(pks.PublicKey()); err != nil {
		t.Fatalf("VerifyAuthority rejected a trusted key: %v", err)
	}

	_, otherPks, err := NewSection(0, 1, rand.Reader)
	if err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	if err := km.VerifyAuthority(otherPks.PublicKey()); err == nil {
		t.Fatal("VerifyAuthority accepted an untrusted key")
	}
}
