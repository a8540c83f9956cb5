// nullifier.go - Native nullifier derivation.
//
// Inputs are reduced into the BN254 scalar field before hashing so the
// native hash and the in-circuit hash agree for any 32-byte value.

package privacy

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/common"
)

// Secret is a contributor's private note.
type Secret [32]byte

// NewSecret draws a random secret from crypto/rand.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}

// fieldElement reduces b modulo the BN254 scalar field.
func fieldElement(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// fieldBig returns b reduced into the field as a big.Int.
func fieldBig(b []byte) *big.Int {
	e := fieldElement(b)
	return e.BigInt(new(big.Int))
}

// DeriveNullifier computes the nullifier of secret for campaign.
func DeriveNullifier(secret Secret, campaign common.Hash) common.Hash {
	s := fieldElement(secret[:])
	c := fieldElement(campaign[:])
	h := mimcNative.NewMiMC()
	h.Write(s.Marshal())
	h.Write(c.Marshal())
	return common.BytesToHash(h.Sum(nil))
}
