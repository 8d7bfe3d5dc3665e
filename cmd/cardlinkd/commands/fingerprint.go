package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardlink/internal/cryptoprim"
	"cardlink/internal/persistence"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local identity's certificate fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			store := persistence.NewIdentityStore(cfg.DBPath)
			_, certDER, err := store.Load(passphrase)
			if err != nil {
				return err
			}
			fmt.Println(cryptoprim.FingerprintCertificate(certDER))
			return nil
		},
	}
}
