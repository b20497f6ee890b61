// genesis.go - Deterministic material for minting the first token.
//
// Every token chain starts somewhere. The genesis input's secret key and
// blinding are fixed, publicly derivable values: the genesis token is not
// confidential, it only exists so that everything after it can be.

package veilcash

import (
	"github.com/hzcrypt/veilcash/ringct"
)

// GenesisAmount is the total supply minted by the genesis transaction.
const GenesisAmount ringct.Amount = 1_000_000_000_000

// GenesisMaterial is the fixed input and owner descriptor of the genesis
// transaction: a single true input spending GenesisAmount to a single
// output owned by the (public) genesis key.
type GenesisMaterial struct {
	TrueInput ringct.TrueInput
	OwnerOnce OwnerOnce
}

// NewGenesisMaterial derives the deterministic genesis material. The
// genesis ring has size 1: there is nothing earlier to hide among.
func NewGenesisMaterial() GenesisMaterial {
	sk := ringct.HashToScalar("veilcash/genesis/secret-key/v1")
	blinding := ringct.HashToScalar("veilcash/genesis/blinding/v1")

	trueInput := ringct.NewTrueInput(sk, ringct.RevealedCommitment{
		Value:    GenesisAmount,
		Blinding: blinding,
	})

	// Fixed all-zero derivation index: the genesis output is meant to be
	// recognisable, not unlinkable.
	return GenesisMaterial{
		TrueInput: trueInput,
		OwnerOnce: OwnerOnce{
			OwnerBase:       NewOwnerFromSecret(sk),
			DerivationIndex: DerivationIndex{},
		},
	}
}
