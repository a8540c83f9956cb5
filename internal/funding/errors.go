package funding

import (
	"errors"

	"shadowfund/internal/campaign"
	"shadowfund/internal/compliance"
	"shadowfund/internal/nullifier"
	"shadowfund/internal/transfer"
)

var (
	ErrSanctionedAddress = errors.New("funding: address is sanctioned by platform admin")
	ErrInvalidProof      = errors.New("funding: invalid zero-knowledge proof")
	ErrInvalidNullifier  = errors.New("funding: invalid nullifier hash")
	ErrInvalidTreasury   = errors.New("funding: invalid treasury address")
	ErrCampaignNotFound  = errors.New("funding: campaign not found")
	ErrCampaignExists    = errors.New("funding: campaign already exists")
	ErrTransferFailed    = errors.New("funding: transfer failed")

	// ErrNullifierReused is the store's error, re-exported for callers of Donate.
	ErrNullifierReused = nullifier.ErrNullifierReused
)

// ErrorKind groups errors by how a caller should react.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation: bad input, checked before any mutation. Retry with corrected input.
	KindValidation
	// KindAuthorization: wrong admin, owner or treasury, or a sanctioned caller.
	KindAuthorization
	// KindConflict: a business rule rejected the call against current state.
	KindConflict
	// KindArithmetic: the ledger hit a numeric limit.
	KindArithmetic
	// KindExternal: the transfer substrate failed.
	KindExternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindArithmetic:
		return "arithmetic"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

type errorClass struct {
	err  error
	kind ErrorKind
	code string
}

// External and arithmetic come first so a transfer failure is never
// reported as something else.
var errorTable = []errorClass{
	{ErrTransferFailed, KindExternal, "TransferFailed"},
	{transfer.ErrInsufficientFunds, KindExternal, "InsufficientFunds"},
	{transfer.ErrBalanceOverflow, KindExternal, "BalanceOverflow"},
	{campaign.ErrArithmeticOverflow, KindArithmetic, "ArithmeticOverflow"},
	{campaign.ErrArithmeticUnderflow, KindArithmetic, "ArithmeticUnderflow"},

	{campaign.ErrInvalidTarget, KindValidation, "InvalidTarget"},
	{campaign.ErrInvalidDeadline, KindValidation, "InvalidDeadline"},
	{campaign.ErrNameTooLong, KindValidation, "NameTooLong"},
	{campaign.ErrDescriptionTooLong, KindValidation, "DescriptionTooLong"},
	{campaign.ErrTooManyTiers, KindValidation, "TooManyTiers"},
	{campaign.ErrInvalidTierIndex, KindValidation, "InvalidTierIndex"},
	{campaign.ErrInsufficientAmountTier, KindValidation, "InsufficientAmountForTier"},
	{campaign.ErrInvalidAmount, KindValidation, "InvalidAmount"},
	{campaign.ErrInvalidFee, KindValidation, "InvalidFee"},
	{ErrInvalidProof, KindValidation, "InvalidProof"},
	{ErrInvalidNullifier, KindValidation, "InvalidNullifier"},

	{ErrSanctionedAddress, KindAuthorization, "SanctionedAddress"},
	{compliance.ErrUnauthorized, KindAuthorization, "Unauthorized"},
	{campaign.ErrNotOwner, KindAuthorization, "NotOwner"},
	{ErrInvalidTreasury, KindAuthorization, "InvalidTreasury"},

	{ErrNullifierReused, KindConflict, "NullifierReused"},
	{campaign.ErrTierSoldOut, KindConflict, "TierSoldOut"},
	{campaign.ErrTiersFrozen, KindConflict, "TiersFrozen"},
	{campaign.ErrTargetNotMet, KindConflict, "TargetNotMet"},
	{campaign.ErrTargetMet, KindConflict, "TargetMet"},
	{campaign.ErrCampaignActive, KindConflict, "CampaignActive"},
	{campaign.ErrCampaignNotEmpty, KindConflict, "CampaignNotEmpty"},
	{campaign.ErrReceiptNotFound, KindConflict, "ReceiptNotFound"},
	{campaign.ErrNoFundsToRefund, KindConflict, "NoFundsToRefund"},
	{campaign.ErrStalePlan, KindConflict, "StalePlan"},
	{campaign.ErrCampaignSettled, KindConflict, "CampaignSettled"},
	{compliance.ErrDuplicateSanction, KindConflict, "DuplicateSanction"},
	{compliance.ErrNotFound, KindConflict, "SanctionNotFound"},
	{ErrCampaignExists, KindConflict, "CampaignExists"},
	{ErrCampaignNotFound, KindConflict, "CampaignNotFound"},
}

func classify(err error) (errorClass, bool) {
	for _, c := range errorTable {
		if errors.Is(err, c.err) {
			return c, true
		}
	}
	return errorClass{}, false
}

// KindOf classifies err. Unrecognised and nil errors are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	c, _ := classify(err)
	return c.kind
}

// Code returns a stable identifier for err, used in logs and metrics.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := classify(err); ok {
		return c.code
	}
	return "Unknown"
}
