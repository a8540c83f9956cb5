package campaign

import (
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
)

// DonationKind says whether a donation claims a reward tier.
type DonationKind struct {
	tiered bool
	index  uint8
}

// Untiered is a plain donation. It creates no receipt and is not refundable.
func Untiered() DonationKind { return DonationKind{} }

// Tiered is a donation that claims the tier at index.
func Tiered(index uint8) DonationKind { return DonationKind{tiered: true, index: index} }

// TierIndex returns the claimed tier, if any.
func (k DonationKind) TierIndex() (uint8, bool) { return k.index, k.tiered }

// DonationPlan is a validated donation whose effects have not been applied.
type DonationPlan struct {
	Backer     common.Address
	Amount     uint64
	Kind       DonationKind
	NewCurrent uint64

	version uint64
	receipt *Receipt
}

// PlanDonation validates a donation against the current state and computes
// its effects without mutating c.
func (c *Campaign) PlanDonation(backer common.Address, amount uint64, kind DonationKind) (*DonationPlan, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if c.settled {
		return nil, ErrCampaignSettled
	}
	p := &DonationPlan{Backer: backer, Amount: amount, Kind: kind, version: c.version}

	if idx, ok := kind.TierIndex(); ok {
		if int(idx) >= len(c.Tiers) {
			return nil, ErrInvalidTierIndex
		}
		tier := c.Tiers[idx]
		if amount < tier.Amount {
			return nil, ErrInsufficientAmountTier
		}
		if tier.SoldOut() {
			return nil, ErrTierSoldOut
		}
		r := Receipt{Campaign: c.ID, Backer: backer}
		if prev, ok := c.receipts[backer]; ok {
			r = *prev
		}
		paid, carry := bits.Add64(r.AmountPaid, amount, 0)
		if carry != 0 {
			return nil, ErrArithmeticOverflow
		}
		r.TierIndex = idx
		r.AmountPaid = paid
		p.receipt = &r
	}

	sum, carry := bits.Add64(c.CurrentAmount, amount, 0)
	if carry != 0 {
		return nil, ErrArithmeticOverflow
	}
	p.NewCurrent = sum
	return p, nil
}

// ApplyDonation commits a plan produced by PlanDonation on the same state.
func (c *Campaign) ApplyDonation(p *DonationPlan) error {
	if p.version != c.version {
		return ErrStalePlan
	}
	if idx, ok := p.Kind.TierIndex(); ok {
		c.Tiers[idx].Claimed++
		r := *p.receipt
		c.receipts[p.Backer] = &r
	}
	c.CurrentAmount = p.NewCurrent
	c.Donations++
	c.version++
	return nil
}
