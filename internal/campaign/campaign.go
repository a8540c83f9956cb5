// campaign.go - Campaign state: pledge target, deadline, accumulated amount,
// reward tiers and per-backer receipts.
//
// A Campaign is plain data plus validation. It is not safe for concurrent
// use; the funding engine owns each campaign inside a critical section and
// mutates it only through the Plan*/Apply* pairs in pledge.go and settle.go.

package campaign

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	MaxNameLen            = 50
	MaxDescriptionLen     = 280
	MaxTierNameLen        = 50
	MaxTierDescriptionLen = 200
	MaxTiers              = 10
)

// ID identifies a campaign.
type ID = common.Hash

// DeriveID returns the campaign id for the seq-th campaign of owner.
func DeriveID(owner common.Address, seq uint64) ID {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], seq)
	return crypto.Keccak256Hash([]byte("campaign"), owner.Bytes(), le[:])
}

// VaultAddress is the address that holds a campaign's pledged funds.
func VaultAddress(id ID) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("vault"), id.Bytes()))
}

// RewardTier is a pledge bracket. Limit 0 means unlimited.
type RewardTier struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	Limit       uint32 `json:"limit"`
	Claimed     uint32 `json:"claimed"`
}

// SoldOut reports whether the tier cannot be claimed again.
func (t RewardTier) SoldOut() bool {
	return t.Limit > 0 && t.Claimed >= t.Limit
}

// Receipt records a backer's cumulative tiered pledge. Its existence gates
// exactly one refund.
type Receipt struct {
	Campaign   ID             `json:"campaign"`
	Backer     common.Address `json:"backer"`
	TierIndex  uint8          `json:"tier_index"`
	AmountPaid uint64         `json:"amount_paid"`
}

// Campaign is a single fundraising goal.
type Campaign struct {
	ID            ID
	Owner         common.Address
	Name          string
	Description   string
	TargetAmount  uint64
	CurrentAmount uint64
	Deadline      time.Time
	Tiers         []RewardTier
	Donations     uint64

	receipts map[common.Address]*Receipt
	settled  bool
	version  uint64
}

// New validates the parameters and returns an empty campaign. Lengths are
// measured in bytes.
func New(owner common.Address, seq uint64, name, description string, target uint64, deadline, now time.Time) (*Campaign, error) {
	if target == 0 {
		return nil, ErrInvalidTarget
	}
	if !deadline.After(now) {
		return nil, ErrInvalidDeadline
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if len(description) > MaxDescriptionLen {
		return nil, ErrDescriptionTooLong
	}
	return &Campaign{
		ID:           DeriveID(owner, seq),
		Owner:        owner,
		Name:         name,
		Description:  description,
		TargetAmount: target,
		Deadline:     deadline,
		receipts:     make(map[common.Address]*Receipt),
	}, nil
}

// Vault returns the campaign's fund-holding address.
func (c *Campaign) Vault() common.Address {
	return VaultAddress(c.ID)
}

// TierSpec holds the caller-supplied fields of a new tier.
type TierSpec struct {
	Name        string
	Description string
	Amount      uint64
	Limit       uint32
}

// AddTier appends a tier. The new tier's index is its insertion position.
func (c *Campaign) AddTier(caller common.Address, spec TierSpec) (int, error) {
	if caller != c.Owner {
		return 0, ErrNotOwner
	}
	if len(spec.Name) > MaxTierNameLen {
		return 0, ErrNameTooLong
	}
	if len(spec.Description) > MaxTierDescriptionLen {
		return 0, ErrDescriptionTooLong
	}
	if len(c.Tiers) >= MaxTiers {
		return 0, ErrTooManyTiers
	}
	if c.Donations > 0 {
		return 0, ErrTiersFrozen
	}
	c.Tiers = append(c.Tiers, RewardTier{
		Name:        spec.Name,
		Description: spec.Description,
		Amount:      spec.Amount,
		Limit:       spec.Limit,
	})
	c.version++
	return len(c.Tiers) - 1, nil
}

// Receipt returns a copy of backer's receipt.
func (c *Campaign) Receipt(backer common.Address) (Receipt, bool) {
	r, ok := c.receipts[backer]
	if !ok {
		return Receipt{}, false
	}
	return *r, true
}

// Receipts returns the number of live receipts.
func (c *Campaign) Receipts() int {
	return len(c.receipts)
}

// Settled reports whether the campaign has been paid out to its owner. A
// settled campaign accepts no further donations, withdrawals or refunds.
func (c *Campaign) Settled() bool {
	return c.settled
}

// GoalReached reports whether the accumulated amount meets the target.
func (c *Campaign) GoalReached() bool {
	return c.CurrentAmount >= c.TargetAmount
}

// Clone returns a deep copy that shares no mutable state with c.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.Tiers = append([]RewardTier(nil), c.Tiers...)
	cp.receipts = make(map[common.Address]*Receipt, len(c.receipts))
	for k, r := range c.receipts {
		rc := *r
		cp.receipts[k] = &rc
	}
	return &cp
}
