package campaign

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	backer = common.HexToAddress("0x000000000000000000000000000000000000beef")
	t0     = time.Unix(1_700_000_000, 0)
)

func newCampaign(t *testing.T, target uint64) *Campaign {
	t.Helper()
	c, err := New(owner, 1, "Solar", "Panels for the school", target, t0.Add(100*time.Second), t0)
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	deadline := t0.Add(time.Hour)
	tests := []struct {
		name     string
		title    string
		desc     string
		target   uint64
		deadline time.Time
		want     error
	}{
		{"zero target", "a", "b", 0, deadline, ErrInvalidTarget},
		{"deadline now", "a", "b", 1, t0, ErrInvalidDeadline},
		{"deadline past", "a", "b", 1, t0.Add(-time.Second), ErrInvalidDeadline},
		{"name too long", strings.Repeat("n", MaxNameLen+1), "b", 1, deadline, ErrNameTooLong},
		{"description too long", "a", strings.Repeat("d", MaxDescriptionLen+1), 1, deadline, ErrDescriptionTooLong},
		{"limits inclusive", strings.Repeat("n", MaxNameLen), strings.Repeat("d", MaxDescriptionLen), 1, deadline, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(owner, 7, tt.title, tt.desc, tt.target, tt.deadline, t0)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, c.CurrentAmount)
			assert.Equal(t, DeriveID(owner, 7), c.ID)
		})
	}
}

func TestDeriveIDDistinct(t *testing.T) {
	assert.NotEqual(t, DeriveID(owner, 1), DeriveID(owner, 2))
	assert.NotEqual(t, DeriveID(owner, 1), DeriveID(backer, 1))
	assert.NotEqual(t, VaultAddress(DeriveID(owner, 1)), VaultAddress(DeriveID(owner, 2)))
}

func TestAddTier(t *testing.T) {
	c := newCampaign(t, 1000)

	_, err := c.AddTier(backer, TierSpec{Name: "x"})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = c.AddTier(owner, TierSpec{Name: strings.Repeat("n", MaxTierNameLen+1)})
	assert.ErrorIs(t, err, ErrNameTooLong)
	_, err = c.AddTier(owner, TierSpec{Name: "x", Description: strings.Repeat("d", MaxTierDescriptionLen+1)})
	assert.ErrorIs(t, err, ErrDescriptionTooLong)

	for i := 0; i < MaxTiers; i++ {
		idx, err := c.AddTier(owner, TierSpec{Name: "tier", Amount: uint64(i + 1)})
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	_, err = c.AddTier(owner, TierSpec{Name: "eleventh"})
	assert.ErrorIs(t, err, ErrTooManyTiers)
	assert.Len(t, c.Tiers, MaxTiers)
	assert.Equal(t, uint64(3), c.Tiers[2].Amount, "tiers keep insertion order")
}

func TestTiersFrozenAfterDonation(t *testing.T) {
	c := newCampaign(t, 1000)
	p, err := c.PlanDonation(backer, 10, Untiered())
	require.NoError(t, err)
	require.NoError(t, c.ApplyDonation(p))

	_, err = c.AddTier(owner, TierSpec{Name: "late"})
	assert.ErrorIs(t, err, ErrTiersFrozen)
}

func TestPlanDonationDoesNotMutate(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.AddTier(owner, TierSpec{Name: "gold", Amount: 100, Limit: 1})
	require.NoError(t, err)

	p, err := c.PlanDonation(backer, 150, Tiered(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(150), p.NewCurrent)
	assert.Zero(t, c.CurrentAmount)
	assert.Zero(t, c.Tiers[0].Claimed)
	_, ok := c.Receipt(backer)
	assert.False(t, ok)

	require.NoError(t, c.ApplyDonation(p))
	assert.Equal(t, uint64(150), c.CurrentAmount)
	assert.Equal(t, uint32(1), c.Tiers[0].Claimed)
	r, ok := c.Receipt(backer)
	require.True(t, ok)
	assert.Equal(t, uint64(150), r.AmountPaid)
	assert.Equal(t, uint8(0), r.TierIndex)
	assert.Equal(t, c.ID, r.Campaign)
}

func TestPlanDonationTierRules(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.AddTier(owner, TierSpec{Name: "bronze", Amount: 50, Limit: 2})
	require.NoError(t, err)
	_, err = c.AddTier(owner, TierSpec{Name: "open", Amount: 10})
	require.NoError(t, err)

	_, err = c.PlanDonation(backer, 0, Untiered())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = c.PlanDonation(backer, 50, Tiered(2))
	assert.ErrorIs(t, err, ErrInvalidTierIndex)
	_, err = c.PlanDonation(backer, 49, Tiered(0))
	assert.ErrorIs(t, err, ErrInsufficientAmountTier)

	for i := 0; i < 2; i++ {
		p, err := c.PlanDonation(backer, 50, Tiered(0))
		require.NoError(t, err)
		require.NoError(t, c.ApplyDonation(p))
	}
	_, err = c.PlanDonation(backer, 50, Tiered(0))
	assert.ErrorIs(t, err, ErrTierSoldOut)
	assert.Equal(t, uint32(2), c.Tiers[0].Claimed)

	r, _ := c.Receipt(backer)
	assert.Equal(t, uint64(100), r.AmountPaid, "receipt accumulates across donations")

	// Unlimited tier never sells out.
	for i := 0; i < 20; i++ {
		p, err := c.PlanDonation(backer, 10, Tiered(1))
		require.NoError(t, err)
		require.NoError(t, c.ApplyDonation(p))
	}
	assert.Equal(t, uint32(20), c.Tiers[1].Claimed)
}

func TestPlanDonationOverflow(t *testing.T) {
	c := newCampaign(t, 1000)
	c.CurrentAmount = math.MaxUint64 - 5
	_, err := c.PlanDonation(backer, 6, Untiered())
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	p, err := c.PlanDonation(backer, 5, Untiered())
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), p.NewCurrent)
}

func TestStalePlanRejected(t *testing.T) {
	c := newCampaign(t, 1000)
	p1, err := c.PlanDonation(backer, 10, Untiered())
	require.NoError(t, err)
	p2, err := c.PlanDonation(backer, 20, Untiered())
	require.NoError(t, err)
	require.NoError(t, c.ApplyDonation(p1))
	assert.ErrorIs(t, c.ApplyDonation(p2), ErrStalePlan)
	assert.Equal(t, uint64(10), c.CurrentAmount)
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		total     uint64
		bps       uint16
		fee, rest uint64
	}{
		{1100, 500, 55, 1045},
		{999, 1, 0, 999},
		{10000, 1, 1, 9999},
		{1, 10000, 1, 0},
		{0, 500, 0, 0},
		{math.MaxUint64, 10000, math.MaxUint64, 0},
		{math.MaxUint64, 9999, 18444899399302180659, 1844674407370956},
	}
	for _, tt := range tests {
		fee, rest, err := SplitFee(tt.total, tt.bps)
		require.NoError(t, err)
		assert.Equal(t, tt.fee, fee, "fee for %d @ %d", tt.total, tt.bps)
		assert.Equal(t, tt.rest, rest)
		assert.Equal(t, tt.total, fee+rest)
	}
	_, _, err := SplitFee(1, 10001)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestWithdrawPlan(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.PlanWithdraw(owner, 500)
	assert.ErrorIs(t, err, ErrTargetNotMet)

	c.CurrentAmount = 1100
	_, err = c.PlanWithdraw(backer, 500)
	assert.ErrorIs(t, err, ErrNotOwner)

	p, err := c.PlanWithdraw(owner, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), p.Fee)
	assert.Equal(t, uint64(1045), p.CreatorAmount)
	require.NoError(t, c.ApplyWithdraw(p))
	assert.Zero(t, c.CurrentAmount)

	assert.True(t, c.Settled())

	_, err = c.PlanWithdraw(owner, 500)
	assert.ErrorIs(t, err, ErrCampaignSettled, "withdraw is one-shot")
}

func TestWithdrawSettlesCampaign(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.AddTier(owner, TierSpec{Name: "t", Amount: 100})
	require.NoError(t, err)
	for _, d := range []struct {
		who    common.Address
		amount uint64
		kind   DonationKind
	}{{backer, 400, Tiered(0)}, {owner, 600, Untiered()}} {
		p, err := c.PlanDonation(d.who, d.amount, d.kind)
		require.NoError(t, err)
		require.NoError(t, c.ApplyDonation(p))
	}

	wp, err := c.PlanWithdraw(owner, 0)
	require.NoError(t, err)
	require.NoError(t, c.ApplyWithdraw(wp))
	assert.Zero(t, c.Receipts(), "paid-out receipts are dropped")

	_, err = c.PlanDonation(backer, 500, Untiered())
	assert.ErrorIs(t, err, ErrCampaignSettled)
	_, err = c.PlanDonation(backer, 0, Untiered())
	assert.ErrorIs(t, err, ErrInvalidAmount, "input is validated before state")

	_, err = c.PlanRefund(backer, c.Deadline.Add(time.Second))
	assert.ErrorIs(t, err, ErrCampaignSettled)
	assert.NoError(t, c.CheckClose(owner))

	assert.True(t, c.Clone().Settled())
}

func TestRefundPlan(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.AddTier(owner, TierSpec{Name: "t", Amount: 100})
	require.NoError(t, err)
	p, err := c.PlanDonation(backer, 300, Tiered(0))
	require.NoError(t, err)
	require.NoError(t, c.ApplyDonation(p))

	_, err = c.PlanRefund(backer, c.Deadline)
	assert.ErrorIs(t, err, ErrCampaignActive, "deadline itself is still active")

	after := c.Deadline.Add(time.Second)
	_, err = c.PlanRefund(owner, after)
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	rp, err := c.PlanRefund(backer, after)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), rp.Amount)
	require.NoError(t, c.ApplyRefund(rp))
	assert.Zero(t, c.CurrentAmount)
	assert.Zero(t, c.Receipts())

	_, err = c.PlanRefund(backer, after)
	assert.ErrorIs(t, err, ErrReceiptNotFound, "second refund has no receipt")
}

func TestRefundBlockedWhenTargetMet(t *testing.T) {
	c := newCampaign(t, 100)
	_, err := c.AddTier(owner, TierSpec{Name: "t", Amount: 1})
	require.NoError(t, err)
	p, err := c.PlanDonation(backer, 100, Tiered(0))
	require.NoError(t, err)
	require.NoError(t, c.ApplyDonation(p))

	_, err = c.PlanRefund(backer, c.Deadline.Add(time.Second))
	assert.ErrorIs(t, err, ErrTargetMet)
}

func TestCheckClose(t *testing.T) {
	c := newCampaign(t, 100)
	assert.ErrorIs(t, c.CheckClose(backer), ErrNotOwner)
	assert.NoError(t, c.CheckClose(owner))
	c.CurrentAmount = 1
	assert.ErrorIs(t, c.CheckClose(owner), ErrCampaignNotEmpty)
}

func TestClone(t *testing.T) {
	c := newCampaign(t, 1000)
	_, err := c.AddTier(owner, TierSpec{Name: "t", Amount: 1})
	require.NoError(t, err)
	p, err := c.PlanDonation(backer, 5, Tiered(0))
	require.NoError(t, err)
	require.NoError(t, c.ApplyDonation(p))

	cp := c.Clone()
	cp.Tiers[0].Claimed = 99
	cp.CurrentAmount = 0
	assert.Equal(t, uint32(1), c.Tiers[0].Claimed)
	assert.Equal(t, uint64(5), c.CurrentAmount)
	r, ok := cp.Receipt(backer)
	require.True(t, ok)
	assert.Equal(t, uint64(5), r.AmountPaid)
}
