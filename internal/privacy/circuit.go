package privacy

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// CircuitDonation proves knowledge of the secret behind a nullifier.
type CircuitDonation struct {
	// Public inputs
	NullifierHash frontend.Variable `gnark:",public"`
	CampaignID    frontend.Variable `gnark:",public"`
	Amount        frontend.Variable `gnark:",public"`

	// Private inputs
	Secret frontend.Variable
}

func (c *CircuitDonation) Define(api frontend.API) error {
	// nullifier = MiMC(secret, campaignID)
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.Secret, c.CampaignID)
	api.AssertIsEqual(c.NullifierHash, hasher.Sum())

	// Amount is a non-zero u64.
	api.ToBinary(c.Amount, 64)
	api.AssertIsDifferent(c.Amount, 0)
	return nil
}
