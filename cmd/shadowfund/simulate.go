// simulate.go - End-to-end campaign run against the in-memory ledger.
//
// Two backers fund a campaign past its target and the owner withdraws:
//   - backer A pledges 600 at T+1 with no tier
//   - backer B pledges 500 at T+2
//   - the owner withdraws at T+3 and the platform fee goes to the treasury
//
// Nullifiers are derived from fresh secrets. With groth16 set, each pledge
// also carries a real donation proof checked by the Groth16 verifier.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"shadowfund/internal/campaign"
	"shadowfund/internal/funding"
	"shadowfund/internal/metrics"
	"shadowfund/internal/privacy"
	"shadowfund/internal/transfer"
)

var (
	simOwner  = common.HexToAddress("0x000000000000000000000000000000000000000e")
	simBacker = []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000a11"),
		common.HexToAddress("0x0000000000000000000000000000000000000b0b"),
	}
	simPledges = []uint64{600, 500}
)

// simClock is a manually advanced clock.
type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SimResult is the outcome of a simulation run.
type SimResult struct {
	Campaign   campaign.ID
	Pledged    uint64
	Settlement funding.Settlement
	Balances   map[common.Address]uint64
	Nullifiers int
}

type simOptions struct {
	groth16 bool
	save    bool
}

// pledger produces the proof and nullifier for one pledge.
type pledger func(secret privacy.Secret, id campaign.ID, amount uint64) ([]byte, common.Hash, error)

// shapeProof fills the proof slot for the shape-only verifier.
func shapeProof(secret privacy.Secret, id campaign.ID, _ uint64) ([]byte, common.Hash, error) {
	return bytes.Repeat([]byte{0x01}, privacy.MinProofLen), privacy.DeriveNullifier(secret, id), nil
}

// loadDonationKeys compiles the donation circuit and loads or creates its
// keys under dir.
func loadDonationKeys(dir string) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	ccs, err := privacy.CompileDonationCircuit()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compile donation circuit: %w", err)
	}
	pk, vk, err := privacy.SetupOrLoadKeys(ccs,
		filepath.Join(dir, "donation_pk.bin"),
		filepath.Join(dir, "donation_vk.bin"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("donation key setup: %w", err)
	}
	return ccs, pk, vk, nil
}

// runSimulation steps:
//  1. Build the engine over a funded in-memory ledger
//  2. Open the campaign
//  3. Pledge from each backer, one second apart
//  4. Withdraw and report balances
func runSimulation(ctx context.Context, cfg *Config, opts simOptions, log zerolog.Logger, out io.Writer) (*SimResult, error) {
	platform, err := cfg.PlatformConfig()
	if err != nil {
		return nil, err
	}

	// 1.
	ledger := transfer.NewLedger()
	for i, b := range simBacker {
		if err := ledger.Credit(b, simPledges[i]); err != nil {
			return nil, err
		}
	}
	clock := &simClock{now: time.Now().UTC().Truncate(time.Second)}
	collector := metrics.NewCollector()
	engineOpts := []funding.Option{
		funding.WithClock(clock),
		funding.WithLogger(log),
		funding.WithMetrics(collector),
	}

	pledge := pledger(shapeProof)
	if opts.groth16 {
		ccs, pk, vk, err := loadDonationKeys(cfg.KeyDir)
		if err != nil {
			return nil, err
		}
		pledge = privacy.NewProver(ccs, pk).Prove
		engineOpts = append(engineOpts, funding.WithVerifier(privacy.NewGroth16Verifier(vk)))
	}

	engine, err := funding.New(platform, ledger, engineOpts...)
	if err != nil {
		return nil, err
	}

	// 2.
	deadline := clock.Now().Add(time.Duration(cfg.DeadlineSeconds) * time.Second)
	id, err := engine.InitializeCampaign(simOwner, 1, "shadowfund demo", "simulated campaign", cfg.TargetAmount, deadline)
	if err != nil {
		return nil, fmt.Errorf("initialize campaign: %w", err)
	}
	fmt.Fprintf(out, "campaign %s target=%d vault=%s\n", id.Hex(), cfg.TargetAmount, campaign.VaultAddress(id).Hex())

	// 3.
	for i, b := range simBacker {
		clock.Advance(time.Second)
		secret, err := privacy.NewSecret()
		if err != nil {
			return nil, err
		}
		proof, null, err := pledge(secret, id, simPledges[i])
		if err != nil {
			return nil, fmt.Errorf("prove pledge %d: %w", i, err)
		}
		err = engine.Donate(ctx, funding.Donation{
			Campaign:  id,
			Backer:    b,
			Amount:    simPledges[i],
			Proof:     proof,
			Nullifier: null.Bytes(),
			Kind:      campaign.Untiered(),
		})
		if err != nil {
			return nil, fmt.Errorf("donate from %s: %w", b.Hex(), err)
		}
		fmt.Fprintf(out, "pledge %s amount=%d nullifier=%s\n", b.Hex(), simPledges[i], null.Hex())
	}

	snap, err := engine.Campaign(id)
	if err != nil {
		return nil, err
	}
	res := &SimResult{Campaign: id, Pledged: snap.CurrentAmount}

	// 4.
	clock.Advance(time.Second)
	res.Settlement, err = engine.Withdraw(ctx, id, simOwner, platform.Treasury)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	fmt.Fprintf(out, "withdraw fee=%d creator=%d\n", res.Settlement.Fee, res.Settlement.CreatorAmount)

	res.Balances = map[common.Address]uint64{
		simOwner:                  ledger.Balance(simOwner),
		platform.Treasury:         ledger.Balance(platform.Treasury),
		campaign.VaultAddress(id): ledger.Balance(campaign.VaultAddress(id)),
	}
	for _, b := range simBacker {
		res.Balances[b] = ledger.Balance(b)
	}
	fmt.Fprintf(out, "balances owner=%d treasury=%d vault=%d\n",
		res.Balances[simOwner], res.Balances[platform.Treasury], res.Balances[campaign.VaultAddress(id)])

	res.Nullifiers = engine.Nullifiers().Len()
	if opts.save && cfg.NullifierPath != "" {
		if err := engine.Nullifiers().SaveToFile(cfg.NullifierPath); err != nil {
			return nil, fmt.Errorf("save nullifiers: %w", err)
		}
		log.Info().Str("path", cfg.NullifierPath).Int("count", res.Nullifiers).Msg("nullifier snapshot written")
	}
	log.Debug().Interface("metrics", collector.Summary()).Msg("simulation metrics")
	return res, nil
}
