// errors.go - Failure values of the ring-confidential-transaction layer.

package ringct

import "errors"

var (
	// ErrTransactionMustHaveAnInput rejects signing or verifying an empty
	// input set.
	ErrTransactionMustHaveAnInput = errors.New("the transaction must have at least one input")

	// ErrInvalidRingSignature reports a ring signature whose challenge
	// chain does not close, or whose key image is malformed.
	ErrInvalidRingSignature = errors.New("invalid ring signature")

	// ErrCommitmentCountMismatch reports commitment lists that do not line
	// up with the transaction's rings.
	ErrCommitmentCountMismatch = errors.New("public commitment count does not match ring size")

	// ErrKeyImageNotUnique reports a key image appearing on more than one
	// input of the same transaction.
	ErrKeyImageNotUnique = errors.New("key image not unique across transaction inputs")

	// ErrBalanceCheckFailed reports pseudo-output and output commitment
	// sums that differ: amounts were not conserved.
	ErrBalanceCheckFailed = errors.New("input and output commitment sums do not balance")

	// ErrDecodeTransaction reports malformed transaction bytes.
	ErrDecodeTransaction = errors.New("malformed transaction encoding")
)
