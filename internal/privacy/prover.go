// prover.go - Client-side proof generation and Groth16 key management.
//
// Proving happens off the engine; it lives here so tests and the CLI can
// produce real proofs for the verifier.

package privacy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/ethereum/go-ethereum/common"
)

// CompileDonationCircuit builds the R1CS for CircuitDonation.
func CompileDonationCircuit() (constraint.ConstraintSystem, error) {
	var circuit CircuitDonation
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// Prover produces donation proofs.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

func NewProver(ccs constraint.ConstraintSystem, pk groth16.ProvingKey) *Prover {
	return &Prover{ccs: ccs, pk: pk}
}

// Prove returns a serialized proof and the nullifier it commits to.
func (p *Prover) Prove(secret Secret, campaign common.Hash, amount uint64) ([]byte, common.Hash, error) {
	nullifier := DeriveNullifier(secret, campaign)
	assignment := PublicInputs{Nullifier: nullifier, Campaign: campaign, Amount: amount}.assignment()
	assignment.Secret = fieldBig(secret[:])

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, common.Hash{}, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nullifier, nil
}

// Donation keys are stored as raw gnark encodings, one file per key. A pair
// is only usable as produced by a single setup.

func SaveProvingKey(path string, pk groth16.ProvingKey) error     { return writeKey(path, pk) }
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error { return writeKey(path, vk) }

// LoadProvingKey reads a BN254 proving key written by SaveProvingKey.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readKey(path, pk); err != nil {
		return nil, err
	}
	return pk, nil
}

// LoadVerifyingKey reads a BN254 verifying key written by SaveVerifyingKey.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readKey(path, vk); err != nil {
		return nil, err
	}
	return vk, nil
}

func writeKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := key.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readKey(path string, key io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := key.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SetupOrLoadKeys returns the donation key pair stored at pkPath and vkPath.
// If either file is missing, a new pair is generated for ccs and both files
// are rewritten so the pair on disk always comes from one setup. A key that
// exists but cannot be decoded is an error and is left in place.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	switch {
	case pkErr == nil && vkErr == nil:
		return pk, vk, nil
	case pkErr != nil && !errors.Is(pkErr, fs.ErrNotExist):
		return nil, nil, pkErr
	case vkErr != nil && !errors.Is(vkErr, fs.ErrNotExist):
		return nil, nil, vkErr
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("donation setup failed: %w", err)
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
