// Package veilcash implements the transaction core of a bearer-token
// scheme built on ring-confidential-transaction cryptography.
//
// Overview:
//   - Inputs are anonymised in rings of decoys and signed with MLSAG ring
//     signatures; amounts are hidden in Pedersen commitments
//   - Double spends are detected through key images, attested as spent by
//     a distributed spentbook whose authorities sign with threshold BLS
//     key shares
//   - Outputs pay one-time keys derived from an owner's base key and a
//     fresh derivation index, so ownership is unlinkable
//
// Flow:
//   - TransactionBuilder accumulates true inputs, a decoy pool and
//     outputs, then Build signs the transaction and returns a TokenBuilder
//   - The caller presents the transaction to each spentbook authority and
//     collects SpentProofShare attestations per key image
//   - TokenBuilder combines shares into SpentProofs, verifies the
//     transaction (VerifyTransaction) and mints one Token per output
//
// The curve arithmetic, commitment scheme and ring signatures live in the
// ringct subpackage; threshold signatures in the bls subpackage. Network
// transport to spentbook authorities, wallet persistence and key
// management are the surrounding application's concern.
package veilcash
