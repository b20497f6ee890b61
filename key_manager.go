// key_manager.go - Authority trust resolution consumed by verification.

package veilcash

import "github.com/hzcrypt/veilcash/bls"

// KeyManager resolves whether a spentbook authority key is trusted. How the
// caller establishes that trust (section membership, external PKI, pinned
// genesis keys) is outside this layer; spent proofs only verify against
// keys this interface accepts.
type KeyManager interface {
	// VerifyAuthority returns nil when pk is a trusted spentbook key and
	// ErrUnrecognisedAuthority (or a wrapping of it) otherwise.
	VerifyAuthority(pk bls.PublicKey) error
}
