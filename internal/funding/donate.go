package funding

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"shadowfund/internal/campaign"
	"shadowfund/internal/nullifier"
	"shadowfund/internal/privacy"
)

// Donation is one private pledge.
type Donation struct {
	Campaign  campaign.ID
	Backer    common.Address
	Amount    uint64
	Proof     []byte
	Nullifier []byte
	Kind      campaign.DonationKind
}

// Donate records a pledge and moves Amount from the backer to the campaign
// vault. Either every effect lands or none does.
//
// Steps:
//  1. Reject sanctioned backers
//  2. Check proof and nullifier shape, then run the verifier
//  3. Reserve the nullifier
//  4. Stage tier, receipt and amount updates
//  5. Transfer backer -> vault
//  6. Commit the nullifier and apply the staged updates
func (e *Engine) Donate(ctx context.Context, d Donation) (err error) {
	log := e.opLogger("donate", d.Campaign)
	log = log.With().Str("backer", d.Backer.Hex()).Uint64("amount", d.Amount).Logger()
	defer func() {
		logOutcome(log, err)
		if err != nil {
			e.metrics.RecordRejection(Code(err))
		}
	}()

	s, err := e.acquire(d.Campaign)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	c := s.c

	// 1.
	if e.registry.IsSanctioned(d.Backer) {
		return ErrSanctionedAddress
	}

	// 2.
	if len(d.Proof) < privacy.MinProofLen {
		return ErrInvalidProof
	}
	hash, err := nullifier.ParseHash(d.Nullifier)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNullifier, err)
	}
	if d.Amount == 0 {
		return campaign.ErrInvalidAmount
	}
	start := e.clock.Now()
	err = e.verifier.Verify(d.Proof, privacy.PublicInputs{Nullifier: hash, Campaign: c.ID, Amount: d.Amount})
	e.metrics.RecordProofVerify(e.clock.Now().Sub(start))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	// 3.
	res, err := e.nullifiers.Reserve(ctx, hash, c.ID)
	if err != nil {
		return err
	}
	defer res.Abort()

	// 4.
	plan, err := c.PlanDonation(d.Backer, d.Amount, d.Kind)
	if err != nil {
		return err
	}

	// 5.
	if err := e.transfers.Transfer(ctx, d.Backer, c.Vault(), d.Amount); err != nil {
		return transferErr(err)
	}

	// 6. Neither call can fail while the slot is held and the reservation
	// is live; the checks guard against misuse.
	if err := res.Commit(); err != nil {
		return fmt.Errorf("donate: commit nullifier: %w", err)
	}
	if err := c.ApplyDonation(plan); err != nil {
		return fmt.Errorf("donate: apply pledge: %w", err)
	}

	e.metrics.RecordDonation(c.ID.Hex(), c.CurrentAmount)
	return nil
}
