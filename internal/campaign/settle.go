package campaign

import (
	"math/bits"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// SplitFee returns floor(total*bps/10000) and the remainder. The product is
// computed in 128 bits so it cannot overflow, and fee+rest == total.
func SplitFee(total uint64, bps uint16) (fee, rest uint64, err error) {
	if bps > MaxBasisPoints {
		return 0, 0, ErrInvalidFee
	}
	hi, lo := bits.Mul64(total, uint64(bps))
	// hi < bps <= 10000, so the quotient fits in 64 bits.
	fee, _ = bits.Div64(hi, lo, MaxBasisPoints)
	return fee, total - fee, nil
}

// WithdrawPlan is the creator-side settlement of a successful campaign.
type WithdrawPlan struct {
	Total         uint64
	Fee           uint64
	CreatorAmount uint64

	version uint64
}

// PlanWithdraw checks the success-settlement preconditions. Treasury
// validation is the caller's concern because the campaign does not know the
// platform config.
func (c *Campaign) PlanWithdraw(caller common.Address, feeBps uint16) (*WithdrawPlan, error) {
	if caller != c.Owner {
		return nil, ErrNotOwner
	}
	if c.settled {
		return nil, ErrCampaignSettled
	}
	if !c.GoalReached() {
		return nil, ErrTargetNotMet
	}
	fee, creator, err := SplitFee(c.CurrentAmount, feeBps)
	if err != nil {
		return nil, err
	}
	return &WithdrawPlan{
		Total:         c.CurrentAmount,
		Fee:           fee,
		CreatorAmount: creator,
		version:       c.version,
	}, nil
}

// ApplyWithdraw empties the campaign after both payouts have moved and
// marks it settled. Receipts are dropped: the pledges they recorded went to
// the owner and cannot be refunded.
func (c *Campaign) ApplyWithdraw(p *WithdrawPlan) error {
	if p.version != c.version {
		return ErrStalePlan
	}
	if c.CurrentAmount < p.Total {
		return ErrArithmeticUnderflow
	}
	c.CurrentAmount -= p.Total
	clear(c.receipts)
	c.settled = true
	c.version++
	return nil
}

// RefundPlan returns one backer's tiered pledge after a failed campaign.
type RefundPlan struct {
	Backer common.Address
	Amount uint64

	version uint64
}

// PlanRefund checks the failure-settlement preconditions for backer.
func (c *Campaign) PlanRefund(backer common.Address, now time.Time) (*RefundPlan, error) {
	if c.settled {
		return nil, ErrCampaignSettled
	}
	if !now.After(c.Deadline) {
		return nil, ErrCampaignActive
	}
	if c.GoalReached() {
		return nil, ErrTargetMet
	}
	r, ok := c.receipts[backer]
	if !ok {
		return nil, ErrReceiptNotFound
	}
	if r.AmountPaid == 0 {
		return nil, ErrNoFundsToRefund
	}
	if c.CurrentAmount < r.AmountPaid {
		return nil, ErrArithmeticUnderflow
	}
	return &RefundPlan{Backer: backer, Amount: r.AmountPaid, version: c.version}, nil
}

// ApplyRefund decrements the pledged amount and destroys the receipt.
func (c *Campaign) ApplyRefund(p *RefundPlan) error {
	if p.version != c.version {
		return ErrStalePlan
	}
	diff, borrow := bits.Sub64(c.CurrentAmount, p.Amount, 0)
	if borrow != 0 {
		return ErrArithmeticUnderflow
	}
	c.CurrentAmount = diff
	delete(c.receipts, p.Backer)
	c.version++
	return nil
}

// CheckClose reports whether caller may close the campaign.
func (c *Campaign) CheckClose(caller common.Address) error {
	if caller != c.Owner {
		return ErrNotOwner
	}
	if c.CurrentAmount != 0 {
		return ErrCampaignNotEmpty
	}
	return nil
}
