// main.go - shadowfund command line.
//
// Usage:
//
//	shadowfund simulate [--groth16] [--save]
//	shadowfund derive-nullifier --secret <hex> --campaign <hex>
//	shadowfund setup-keys [--dir keys]
//
// Every command reads shadowfund.json (created with defaults when missing)
// and then .env overrides.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shadowfund/internal/privacy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	cfg        *Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "shadowfund",
		Short:        "Private, compliance-gated fundraising ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "shadowfund.json", "path to the JSON config file")

	root.AddCommand(
		a.simulateCmd(),
		a.deriveNullifierCmd(),
		a.setupKeysCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(".env", ".env.local"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	a.cfg = cfg
	a.log = log.With().Str("cmd", cmd.Name()).Logger()
	return nil
}

func (a *app) simulateCmd() *cobra.Command {
	var opts simOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a two-backer campaign against the in-memory ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := runSimulation(cmd.Context(), a.cfg, opts, a.log, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.groth16, "groth16", false, "prove pledges with the donation circuit and verify with Groth16")
	cmd.Flags().BoolVar(&opts.save, "save", false, "write the nullifier snapshot to nullifier_path")
	return cmd
}

func (a *app) deriveNullifierCmd() *cobra.Command {
	var secretHex, campaignHex string
	cmd := &cobra.Command{
		Use:   "derive-nullifier",
		Short: "Print the nullifier for a secret and campaign id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := parseHex32(secretHex)
			if err != nil {
				return fmt.Errorf("--secret: %w", err)
			}
			id, err := parseHex32(campaignHex)
			if err != nil {
				return fmt.Errorf("--campaign: %w", err)
			}
			n := privacy.DeriveNullifier(privacy.Secret(secret), common.Hash(id))
			fmt.Fprintln(cmd.OutOrStdout(), n.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&secretHex, "secret", "", "32-byte secret as hex")
	cmd.Flags().StringVar(&campaignHex, "campaign", "", "32-byte campaign id as hex")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func (a *app) setupKeysCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "setup-keys",
		Short: "Compile the donation circuit and create or load its Groth16 keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = a.cfg.KeyDir
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create key directory: %w", err)
			}
			ccs, _, _, err := loadDonationKeys(dir)
			if err != nil {
				return err
			}
			a.log.Info().
				Str("dir", dir).
				Int("constraints", ccs.GetNbConstraints()).
				Msg("donation keys ready")
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, "donation_vk.bin"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "key directory (defaults to key_dir)")
	return cmd
}

func parseHex32(s string) ([32]byte, error) {
	var out [32]byte
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("want %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}
