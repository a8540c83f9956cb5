// verifier.go - Proof verification contracts.
//
// The funding engine depends only on the Verifier interface. ShapeVerifier is
// the mock-acceptance path; Groth16Verifier checks the donation circuit.

package privacy

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common"
)

// MinProofLen is the smallest proof payload accepted by the shape check.
const MinProofLen = 65

var ErrInvalidProof = errors.New("privacy: invalid proof")

// PublicInputs are the values a donation proof is bound to.
type PublicInputs struct {
	Nullifier common.Hash
	Campaign  common.Hash
	Amount    uint64
}

func (in PublicInputs) assignment() *CircuitDonation {
	return &CircuitDonation{
		NullifierHash: new(big.Int).SetBytes(in.Nullifier[:]),
		CampaignID:    fieldBig(in.Campaign[:]),
		Amount:        new(big.Int).SetUint64(in.Amount),
	}
}

// Verifier checks a donation proof.
type Verifier interface {
	Verify(proof []byte, in PublicInputs) error
}

// ShapeVerifier accepts any proof longer than 64 bytes.
type ShapeVerifier struct{}

func (ShapeVerifier) Verify(proof []byte, _ PublicInputs) error {
	if len(proof) < MinProofLen {
		return ErrInvalidProof
	}
	return nil
}

// Groth16Verifier verifies CircuitDonation proofs over BN254.
type Groth16Verifier struct {
	vk groth16.VerifyingKey
}

// NewGroth16Verifier wraps a verifying key produced by Setup or LoadVerifyingKey.
func NewGroth16Verifier(vk groth16.VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{vk: vk}
}

// Verify steps:
//  1. Reject nullifiers that are not canonical field elements
//  2. Unmarshal the proof
//  3. Rebuild the public witness
//  4. Verify the Groth16 proof
func (v *Groth16Verifier) Verify(proofBytes []byte, in PublicInputs) error {
	// A non-canonical encoding would reduce to the same field element under a
	// different store key.
	if new(big.Int).SetBytes(in.Nullifier[:]).Cmp(fr.Modulus()) >= 0 {
		return fmt.Errorf("%w: nullifier is not a field element", ErrInvalidProof)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("%w: cannot unmarshal: %v", ErrInvalidProof, err)
	}

	w, err := frontend.NewWitness(in.assignment(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: cannot build public witness: %v", ErrInvalidProof, err)
	}

	if err := groth16.Verify(proof, v.vk, w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}
