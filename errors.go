// errors.go - Failure taxonomy of the transaction/token building core.
//
// Policy violations, structural mismatches and missing evidence each get a
// distinct value so callers can branch on them; cryptographic failures from
// the lower layers are wrapped and surfaced verbatim, never retried.

package veilcash

import (
	"errors"
	"fmt"

	"github.com/hzcrypt/veilcash/ringct"
)

var (
	// ErrInsufficientDecoys reports a build attempted under the strict
	// decoy policy with fewer usable decoys than decoysPerInput demands
	// for every true input.
	ErrInsufficientDecoys = errors.New("insufficient decoys in the available pool")

	// ErrSpentProofInputLenMismatch reports a spent proof count differing
	// from the transaction's input count.
	ErrSpentProofInputLenMismatch = errors.New("spent proof count does not match transaction input count")

	// ErrPublicKeyNotUniqueAcrossOutputs reports two transaction outputs
	// sharing a one-time public key.
	ErrPublicKeyNotUniqueAcrossOutputs = errors.New("public key not unique across transaction outputs")

	// ErrSpentProofKeyImageMismatch reports a spent proof whose key image
	// matches no transaction input.
	ErrSpentProofKeyImageMismatch = errors.New("spent proof key image does not match any transaction input")

	// ErrPublicKeyNotFound reports a transaction output with no registered
	// one-time owner.
	ErrPublicKeyNotFound = errors.New("no owner registered for output public key")

	// ErrPublicKeySetMismatch reports spent proof shares for one key image
	// announcing different spentbook key sets; heterogeneous sets cannot
	// be combined.
	ErrPublicKeySetMismatch = errors.New("spent proof shares announce different spentbook public key sets")

	// ErrInvalidTransactionHash reports a spent proof bound to a different
	// transaction than the one under verification.
	ErrInvalidTransactionHash = errors.New("spent proof signs a different transaction hash")

	// ErrUnrecognisedAuthority reports a spent proof signed by a key the
	// verifier's key manager does not trust.
	ErrUnrecognisedAuthority = errors.New("unrecognised spentbook authority")

	// ErrSecretKeyUnavailable reports an owner descriptor that carries
	// only the public half where the secret was needed.
	ErrSecretKeyUnavailable = errors.New("owner secret key unavailable")

	// ErrDerivedKeyDoesNotMatch reports token content whose derived key
	// disagrees with the supplied base key.
	ErrDerivedKeyDoesNotMatch = errors.New("derived owner key does not match token content")

	// ErrTokenContentNotInTransaction reports token content that matches
	// none of its own transaction's outputs.
	ErrTokenContentNotInTransaction = errors.New("token content is not a member of its transaction outputs")
)

// MissingSpentProofShareError identifies a transaction input that has no
// spent proof share to combine; the key image tells the caller which
// authority responses are still missing.
type MissingSpentProofShareError struct {
	KeyImage ringct.KeyImage
}

func (e MissingSpentProofShareError) Error() string {
	return fmt.Sprintf("missing spent proof share for key image %s", e.KeyImage)
}

// InvalidSpentProofSignatureError reports a spent proof whose combined
// spentbook signature does not verify.
type InvalidSpentProofSignatureError struct {
	KeyImage ringct.KeyImage
}

func (e InvalidSpentProofSignatureError) Error() string {
	return fmt.Sprintf("invalid spent proof signature for key image %s", e.KeyImage)
}
