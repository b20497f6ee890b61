package veilcash

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/hzcrypt/veilcash/ringct"
)

func TestDerivedKeysAreConsistent(t *testing.T) {
	oo := newOwnerOnce(t)

	sk, err := oo.DerivedSecretKey()
	if err != nil {
		t.Fatalf("DerivedSecretKey failed: %v", err)
	}
	fromSecret := ringct.PublicKeyFromSecret(&sk)
	derived := oo.DerivedPublicKey()
	if !derived.Equal(&fromSecret) {
		t.Fatal("derived public key does not match derived secret key")
	}

	// Derivation depends only on the base key and index.
	again := oo.DerivedPublicKey()
	if !derived.Equal(&again) {
		t.Fatal("derivation is not deterministic")
	}
}

func TestDistinctIndicesYieldDistinctKeys(t *testing.T) {
	owner, err := NewRandomOwner(rand.Reader)
	if err != nil {
		t.Fatalf("NewRandomOwner failed: %v", err)
	}
	a, err := NewOwnerOnce(owner, rand.Reader)
	if err != nil {
		t.Fatalf("NewOwnerOnce failed: %v", err)
	}
	b, err := NewOwnerOnce(owner, rand.Reader)
	if err != nil {
		t.Fatalf("NewOwnerOnce failed: %v", err)
	}
	apk := a.DerivedPublicKey()
	bpk := b.DerivedPublicKey()
	if apk.Equal(&bpk) {
		t.Fatal("independent derivations produced the same one-time key")
	}
}

func TestPublicOwnerHasNoSecret(t *testing.T) {
	owner, err := NewRandomOwner(rand.Reader)
	if err != nil {
		t.Fatalf("NewRandomOwner failed: %v", err)
	}
	if !owner.HasSecretKey() {
		t.Fatal("random owner should hold a secret key")
	}

	public := owner.Public()
	if public.HasSecretKey() {
		t.Fatal("Public() should strip the secret key")
	}
	if _, err := public.SecretKey(); !errors.Is(err, ErrSecretKeyUnavailable) {
		t.Fatalf("expected ErrSecretKeyUnavailable, got %v", err)
	}
	opk := owner.PublicKey()
	ppk := public.PublicKey()
	if !opk.Equal(&ppk) {
		t.Fatal("Public() changed the public key")
	}

	oo := OwnerOnce{OwnerBase: public, DerivationIndex: DerivationIndex{1}}
	if _, err := oo.DerivedSecretKey(); !errors.Is(err, ErrSecretKeyUnavailable) {
		t.Fatalf("expected ErrSecretKeyUnavailable deriving without a secret, got %v", err)
	}
}

func TestOwnerRoundTripThroughSecret(t *testing.T) {
	sk, err := ringct.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	owner := NewOwnerFromSecret(sk)
	got, err := owner.SecretKey()
	if err != nil {
		t.Fatalf("SecretKey failed: %v", err)
	}
	if !got.Equal(&sk) {
		t.Fatal("SecretKey round trip changed the scalar")
	}
	expect := ringct.PublicKeyFromSecret(&sk)
	pk := owner.PublicKey()
	if !pk.Equal(&expect) {
		t.Fatal("public key does not match the secret")
	}
}
