// rangeproof.go - Groth16 proving/verifying of commitment range proofs.
//
// Key handling follows the usual Groth16 lifecycle: compile the circuit
// once, set up (or load) proving/verifying keys, then prove per output and
// verify per output.

package rangeproof

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"

	"github.com/hzcrypt/veilcash/ringct"
)

// Prover produces range proofs for output commitments.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

// Verifier checks range proofs.
type Verifier struct {
	vk groth16.VerifyingKey
}

// Compile builds the range-proof constraint system.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit CircuitCommitment
	ccs, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// Setup compiles the circuit and generates a fresh key pair.
func Setup() (*Prover, *Verifier, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	return &Prover{ccs: ccs, pk: pk}, &Verifier{vk: vk}, nil
}

// SetupOrLoadKeys loads keys from disk when both files exist, otherwise
// generates and saves new ones.
func SetupOrLoadKeys(pkPath, vkPath string) (*Prover, *Verifier, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, nil, err
	}
	pk, pkErr := loadProvingKey(pkPath)
	vk, vkErr := loadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return &Prover{ccs: ccs, pk: pk}, &Verifier{vk: vk}, nil
	}
	pk, vk, err = groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	if err := saveKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := saveKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return &Prover{ccs: ccs, pk: pk}, &Verifier{vk: vk}, nil
}

// Prove generates a proof that commitment opens to (value, blinding) with
// value in range.
func (p *Prover) Prove(value ringct.Amount, blinding bls12377_fr.Element, commitment bls12377.G1Affine) ([]byte, error) {
	g := ringct.GeneratorG()
	h := ringct.GeneratorH()
	witness := &CircuitCommitment{
		Commitment: toGnarkPoint(commitment),
		G:          toGnarkPoint(g),
		H:          toGnarkPoint(h),
		Value:      new(big.Int).SetUint64(value).String(),
		Blinding:   blinding.BigInt(new(big.Int)).String(),
	}
	w, err := frontend.NewWitness(witness, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a single proof against its public commitment.
func (v *Verifier) Verify(proofBytes []byte, commitment bls12377.G1Affine) error {
	g := ringct.GeneratorG()
	h := ringct.GeneratorH()
	witness := &CircuitCommitment{
		Commitment: toGnarkPoint(commitment),
		G:          toGnarkPoint(g),
		H:          toGnarkPoint(h),
	}
	w, err := frontend.NewWitness(witness, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, v.vk, w); err != nil {
		return fmt.Errorf("range proof verification failed: %w", err)
	}
	return nil
}

// VerifyTransaction checks every output's range proof. Outputs without a
// proof fail: a transaction either carries proofs for all outputs or this
// layer is not in use.
func VerifyTransaction(v *Verifier, tx *ringct.RingCtTransaction) error {
	for i := range tx.Outputs {
		if len(tx.Outputs[i].RangeProof) == 0 {
			return fmt.Errorf("output %d carries no range proof", i)
		}
		if err := v.Verify(tx.Outputs[i].RangeProof, tx.Outputs[i].Commitment); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

// toGnarkPoint converts a native BLS12-377 point to gnark witness format.
func toGnarkPoint(p bls12377.G1Affine) sw_bls12377.G1Affine {
	xBytes := p.X.Bytes()
	yBytes := p.Y.Bytes()
	return sw_bls12377.G1Affine{
		X: new(big.Int).SetBytes(xBytes[:]).String(),
		Y: new(big.Int).SetBytes(yBytes[:]).String(),
	}
}

func saveKey(path string, k io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = k.WriteTo(f)
	return err
}

func loadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func loadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	_, err = vk.ReadFrom(f)
	return vk, err
}
