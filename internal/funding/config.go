package funding

import (
	"github.com/ethereum/go-ethereum/common"

	"shadowfund/internal/campaign"
)

// PlatformConfig is the admin-owned platform singleton. It is immutable once
// created.
type PlatformConfig struct {
	Treasury       common.Address `json:"treasury"`
	Admin          common.Address `json:"admin"`
	FeeBasisPoints uint16         `json:"fee_basis_points"`
}

// NewPlatformConfig validates the fee and returns the config.
func NewPlatformConfig(admin, treasury common.Address, feeBps uint16) (PlatformConfig, error) {
	cfg := PlatformConfig{Treasury: treasury, Admin: admin, FeeBasisPoints: feeBps}
	if err := cfg.Validate(); err != nil {
		return PlatformConfig{}, err
	}
	return cfg, nil
}

// Validate checks the fee range.
func (c PlatformConfig) Validate() error {
	if c.FeeBasisPoints > campaign.MaxBasisPoints {
		return campaign.ErrInvalidFee
	}
	return nil
}
