package campaign

import "errors"

// Validation errors.
var (
	ErrInvalidTarget          = errors.New("campaign: target amount must be positive")
	ErrInvalidDeadline        = errors.New("campaign: deadline must be in the future")
	ErrNameTooLong            = errors.New("campaign: name too long")
	ErrDescriptionTooLong     = errors.New("campaign: description too long")
	ErrTooManyTiers           = errors.New("campaign: too many tiers")
	ErrInvalidTierIndex       = errors.New("campaign: invalid tier index")
	ErrInsufficientAmountTier = errors.New("campaign: insufficient amount for tier")
	ErrInvalidAmount          = errors.New("campaign: amount must be positive")
	ErrInvalidFee             = errors.New("campaign: fee basis points out of range")
)

// Authorization errors.
var ErrNotOwner = errors.New("campaign: caller is not the campaign owner")

// State-conflict errors.
var (
	ErrTierSoldOut      = errors.New("campaign: tier sold out")
	ErrTiersFrozen      = errors.New("campaign: tiers are frozen after the first donation")
	ErrTargetNotMet     = errors.New("campaign: target not met")
	ErrTargetMet        = errors.New("campaign: target already met")
	ErrCampaignActive   = errors.New("campaign: campaign is still active")
	ErrCampaignNotEmpty = errors.New("campaign: campaign must be empty to close")
	ErrReceiptNotFound  = errors.New("campaign: no receipt for backer")
	ErrNoFundsToRefund  = errors.New("campaign: no funds to refund")
	ErrStalePlan        = errors.New("campaign: state changed since the plan was prepared")
	ErrCampaignSettled  = errors.New("campaign: funds already withdrawn")
)

// Arithmetic errors.
var (
	ErrArithmeticOverflow  = errors.New("campaign: amount overflow")
	ErrArithmeticUnderflow = errors.New("campaign: amount underflow")
)
