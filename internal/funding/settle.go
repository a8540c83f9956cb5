package funding

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"shadowfund/internal/campaign"
	"shadowfund/internal/metrics"
	"shadowfund/internal/transfer"
)

// Settlement is the split paid out by Withdraw.
type Settlement struct {
	Fee           uint64
	CreatorAmount uint64
}

// Withdraw pays a successful campaign out to its owner, less the platform
// fee. Both legs move in one batch before the campaign is emptied.
func (e *Engine) Withdraw(ctx context.Context, id campaign.ID, caller, treasury common.Address) (st Settlement, err error) {
	log := e.opLogger("withdraw", id)
	defer func() {
		logOutcome(log.With().Uint64("fee", st.Fee).Uint64("creator_amount", st.CreatorAmount).Logger(), err)
	}()

	s, err := e.acquire(id)
	if err != nil {
		return Settlement{}, err
	}
	defer s.mu.Unlock()
	c := s.c

	if caller != c.Owner {
		return Settlement{}, campaign.ErrNotOwner
	}
	if treasury != e.cfg.Treasury {
		return Settlement{}, ErrInvalidTreasury
	}
	plan, err := c.PlanWithdraw(caller, e.cfg.FeeBasisPoints)
	if err != nil {
		return Settlement{}, err
	}

	vault := c.Vault()
	var moves []transfer.Movement
	if plan.Fee > 0 {
		moves = append(moves, transfer.Movement{From: vault, To: treasury, Amount: plan.Fee})
	}
	if plan.CreatorAmount > 0 {
		moves = append(moves, transfer.Movement{From: vault, To: c.Owner, Amount: plan.CreatorAmount})
	}
	if err := e.transfers.TransferBatch(ctx, moves); err != nil {
		return Settlement{}, transferErr(err)
	}
	if err := c.ApplyWithdraw(plan); err != nil {
		return Settlement{}, fmt.Errorf("withdraw: apply: %w", err)
	}

	e.metrics.IncrementCounter(metrics.MetricWithdrawals, nil)
	e.metrics.SetGauge(metrics.MetricPledgedAmount, 0, map[string]string{"campaign": id.Hex()})
	return Settlement{Fee: plan.Fee, CreatorAmount: plan.CreatorAmount}, nil
}

// Refund returns backer's tiered pledge from a campaign that missed its
// target by the deadline, and destroys the receipt.
func (e *Engine) Refund(ctx context.Context, id campaign.ID, backer common.Address) (amount uint64, err error) {
	log := e.opLogger("refund", id).With().Str("backer", backer.Hex()).Logger()
	defer func() { logOutcome(log.With().Uint64("amount", amount).Logger(), err) }()

	s, err := e.acquire(id)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	c := s.c

	plan, err := c.PlanRefund(backer, e.clock.Now())
	if err != nil {
		return 0, err
	}
	if err := e.transfers.Transfer(ctx, c.Vault(), backer, plan.Amount); err != nil {
		return 0, transferErr(err)
	}
	if err := c.ApplyRefund(plan); err != nil {
		return 0, fmt.Errorf("refund: apply: %w", err)
	}

	e.metrics.IncrementCounter(metrics.MetricRefunds, nil)
	e.metrics.SetGauge(metrics.MetricPledgedAmount, float64(c.CurrentAmount), map[string]string{"campaign": id.Hex()})
	return plan.Amount, nil
}

// Cancel closes an empty campaign. Later operations on id fail with
// ErrCampaignNotFound.
func (e *Engine) Cancel(ctx context.Context, id campaign.ID, caller common.Address) (err error) {
	log := e.opLogger("cancel", id)
	defer func() { logOutcome(log, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := e.acquire(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.c.CheckClose(caller); err != nil {
		return err
	}
	s.closed = true
	e.mu.Lock()
	delete(e.campaigns, id)
	e.mu.Unlock()

	e.metrics.IncrementCounter(metrics.MetricCancellations, nil)
	return nil
}
