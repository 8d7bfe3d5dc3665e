// Package commands defines the cardlinkd CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - gen-ca      Generate a self-signed trust root
//   - init        Generate a local identity enrolled against a trust root
//   - fingerprint Print the identity fingerprint
//   - serve       Run the P2P messaging core, accepting dial/send commands on stdin
//
// # Implementation
//
// The root command resolves --home and loads the YAML config before any
// subcommand runs, so handlers share a single resolved directory layout.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cardlink/internal/config"
)

var (
	home       string
	configPath string
	passphrase string
	cfg        config.Config
)

func Execute() error {
	root := &cobra.Command{
		Use:   "cardlinkd",
		Short: "Smartcard-backed P2P instant messaging core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".cardlink")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !filepath.IsAbs(cfg.DBPath) {
				cfg.DBPath = filepath.Join(home, cfg.DBPath)
			}
			if !filepath.IsAbs(cfg.RootCAPath) {
				cfg.RootCAPath = filepath.Join(home, filepath.Base(cfg.RootCAPath))
			}
			return os.MkdirAll(cfg.DBPath, 0o700)
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config and data dir (default ~/.cardlink)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the local identity")

	root.AddCommand(genCaCmd(), initCmd(), fingerprintCmd(), serveCmd())
	return root.Execute()
}
