// spentbook.go - In-memory spentbook authority for tests and demos.
//
// A real spentbook is a distributed set of authorities reached over the
// network. This one is a single process-local section: it keeps a registry
// of known output commitments, records key images as they are spent, and
// issues spent proof shares signed with its threshold key share.

package mock

import (
	"fmt"
	"io"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/hzcrypt/veilcash"
	"github.com/hzcrypt/veilcash/bls"
	"github.com/hzcrypt/veilcash/ringct"
)

// SpentbookNode is one authority of a spentbook section.
type SpentbookNode struct {
	keyShare bls.SecretKeyShare
	pks      bls.PublicKeySet

	// commitments of every output this node has observed, by public key;
	// ring members must resolve here or the node refuses to attest.
	registry map[ringct.PublicKeyBytes]bls12377.G1Affine

	// key image -> hash of the transaction that spent it.
	spent map[ringct.KeyImage]veilcash.Hash
}

// NewSection deals a threshold key set and returns one node per share.
// threshold+1 shares are needed to assemble a spent proof.
func NewSection(threshold, nodes int, rng io.Reader) ([]*SpentbookNode, bls.PublicKeySet, error) {
	if nodes < threshold+1 {
		return nil, bls.PublicKeySet{}, fmt.Errorf("section of %d nodes cannot meet threshold %d", nodes, threshold)
	}
	sks, err := bls.RandomSecretKeySet(threshold, rng)
	if err != nil {
		return nil, bls.PublicKeySet{}, err
	}
	pks := sks.PublicKeys()
	section := make([]*SpentbookNode, nodes)
	for i := range section {
		section[i] = &SpentbookNode{
			keyShare: sks.SecretKeyShare(uint64(i)),
			pks:      pks,
			registry: map[ringct.PublicKeyBytes]bls12377.G1Affine{},
			spent:    map[ringct.KeyImage]veilcash.Hash{},
		}
	}
	return section, pks, nil
}

// PublicKeySet returns the section key set this node signs under.
func (n *SpentbookNode) PublicKeySet() bls.PublicKeySet {
	return n.pks
}

// RegisterOutput records a known output commitment, enabling its public
// key to appear in rings this node attests.
func (n *SpentbookNode) RegisterOutput(pk bls12377.G1Affine, commitment bls12377.G1Affine) {
	n.registry[ringct.CompressPublicKey(&pk)] = commitment
}

// LogSpent records keyImage as spent by tx and returns this node's spent
// proof share for it.
//
// Refuses double spends (same key image, different transaction) and rings
// containing members this node has never seen. Logging the same spend
// twice is idempotent and re-issues the share, since a lost response must
// be retryable.
func (n *SpentbookNode) LogSpent(keyImage ringct.KeyImage, tx *ringct.RingCtTransaction) (veilcash.SpentProofShare, error) {
	txHash := veilcash.Hash(tx.Hash())

	if prev, ok := n.spent[keyImage]; ok && prev != txHash {
		return veilcash.SpentProofShare{}, fmt.Errorf("key image %s already spent in transaction %s", keyImage, prev)
	}

	// Find the input this key image belongs to and resolve its ring's
	// commitments from the registry.
	var commitments []bls12377.G1Affine
	found := false
	for i := range tx.Mlsags {
		if tx.Mlsags[i].KeyImageBytes() != keyImage {
			continue
		}
		found = true
		commitments = make([]bls12377.G1Affine, len(tx.Mlsags[i].Ring))
		for j := range tx.Mlsags[i].Ring {
			c, ok := n.registry[ringct.CompressPublicKey(&tx.Mlsags[i].Ring[j])]
			if !ok {
				return veilcash.SpentProofShare{}, fmt.Errorf("unknown ring member in input %d", i)
			}
			commitments[j] = c
		}
		break
	}
	if !found {
		return veilcash.SpentProofShare{}, fmt.Errorf("key image %s does not belong to the transaction", keyImage)
	}

	// Record the spend and learn the transaction's outputs for future
	// rings.
	n.spent[keyImage] = txHash
	for i := range tx.Outputs {
		n.RegisterOutput(tx.Outputs[i].PublicKey, tx.Outputs[i].Commitment)
	}

	content := veilcash.SpentProofContent{
		KeyImage:          keyImage,
		TransactionHash:   txHash,
		PublicCommitments: commitments,
	}
	contentHash := content.Hash()
	return veilcash.SpentProofShare{
		Content:      content,
		SpentbookPKs: n.pks,
		SigShare:     n.keyShare.SignShare(contentHash[:]),
	}, nil
}

// KeyManager trusts a fixed set of section public keys.
type KeyManager struct {
	trusted []bls.PublicKey
}

// NewKeyManager builds a key manager trusting the given keys.
func NewKeyManager(trusted ...bls.PublicKey) *KeyManager {
	return &KeyManager{trusted: trusted}
}

// VerifyAuthority implements veilcash.KeyManager.
func (km *KeyManager) VerifyAuthority(pk bls.PublicKey) error {
	for i := range km.trusted {
		if km.trusted[i].Equal(&pk) {
			return nil
		}
	}
	return veilcash.ErrUnrecognisedAuthority
}
