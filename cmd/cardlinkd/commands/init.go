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

	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
	"cardlink/internal/persistence"
)

// initCmd generates a fresh static Curve25519 keypair plus an identity
// certificate issued by the trust root at --ca-cert/--ca-key, and
// persists both encrypted under --passphrase (spec §3, §6). A real
// deployment would instead read these from a DNIe smartcard; this demo
// binary stands in with a certificate enrolled against a local CA.
func initCmd() *cobra.Command {
	var caCertPath, caKeyPath, commonName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a local identity and enroll it against a trust root",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}

			caCertDER, caKey, err := loadCA(caCertPath, caKeyPath)
			if err != nil {
				return fmt.Errorf("loading CA: %w", err)
			}
			caCert, err := x509.ParseCertificate(caCertDER)
			if err != nil {
				return fmt.Errorf("parsing CA certificate: %w", err)
			}

			staticPriv, staticPub, err := cryptoprim.GenerateStaticKeyPair()
			if err != nil {
				return err
			}

			leafPub, _, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			leafTmpl := &x509.Certificate{
				SerialNumber: big.NewInt(time.Now().UnixNano()),
				Subject:      pkix.Name{CommonName: commonName},
				NotBefore:    time.Now().Add(-time.Hour),
				NotAfter:     time.Now().AddDate(1, 0, 0),
			}
			leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, caCert, leafPub, caKey)
			if err != nil {
				return fmt.Errorf("issuing leaf certificate: %w", err)
			}

			store := persistence.NewIdentityStore(cfg.DBPath)
			staticKeys := domain.StaticKeyPair{Private: staticPriv, Public: staticPub}
			if err := store.Save(passphrase, staticKeys, leafDER); err != nil {
				return err
			}

			if err := os.WriteFile(cfg.RootCAPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caCertDER}), 0o644); err != nil {
				return err
			}

			fp := cryptoprim.FingerprintCertificate(leafDER)
			fmt.Printf("Identity created for %q.\nFingerprint: %s\n", commonName, fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&caCertPath, "ca-cert", "", "path to CA certificate (default <home>/ca.pem)")
	cmd.Flags().StringVar(&caKeyPath, "ca-key", "", "path to CA private key (default <home>/ca.key)")
	cmd.Flags().StringVar(&commonName, "common-name", "", "display name embedded in the identity certificate")
	_ = cmd.MarkFlagRequired("common-name")
	return cmd
}

func loadCA(certPath, keyPath string) (certDER []byte, key ed25519.PrivateKey, err error) {
	if certPath == "" {
		certPath = filepath.Join(home, "ca.pem")
	}
	if keyPath == "" {
		keyPath = filepath.Join(home, "ca.key")
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, err
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("%s: not a PEM certificate", certPath)
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, err
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("%s: not a PEM key", keyPath)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, err
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("%s: not an Ed25519 private key", keyPath)
	}
	return block.Bytes, priv, nil
}
