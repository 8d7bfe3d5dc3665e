package commands

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// genCaCmd generates a local trust root: a self-signed Ed25519
// certificate authority used to issue leaf certificates for cardlinkd
// identities (spec §4.3's "small set of national roots", stood in for
// by a single locally generated one in this demo binary).
func genCaCmd() *cobra.Command {
	var commonName string
	cmd := &cobra.Command{
		Use:   "gen-ca",
		Short: "Generate a trust root for issuing identity certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			tmpl := &x509.Certificate{
				SerialNumber:          big.NewInt(time.Now().UnixNano()),
				Subject:               pkix.Name{CommonName: commonName},
				NotBefore:             time.Now().Add(-time.Hour),
				NotAfter:              time.Now().AddDate(10, 0, 0),
				IsCA:                  true,
				BasicConstraintsValid: true,
				KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			}
			der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
			if err != nil {
				return err
			}

			keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
			if err != nil {
				return err
			}

			certPath := filepath.Join(home, "ca.pem")
			keyPath := filepath.Join(home, "ca.key")
			if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
				return err
			}
			fmt.Printf("CA written to %s and %s\nShare ca.pem with every peer's --ca-cert; keep ca.key to issue more identities.\n", certPath, keyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&commonName, "common-name", "cardlink demo root", "CA certificate common name")
	return cmd
}
