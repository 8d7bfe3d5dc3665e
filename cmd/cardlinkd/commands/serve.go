package commands

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cardlink/internal/card"
	"cardlink/internal/config"
	"cardlink/internal/core"
	"cardlink/internal/corelog"
	"cardlink/internal/cryptoprim"
	"cardlink/internal/discovery"
	"cardlink/internal/domain"
	"cardlink/internal/handshake"
	"cardlink/internal/identitybinding"
	"cardlink/internal/persistence"
	"cardlink/internal/transport"
)

// serveCmd runs the messaging core until interrupted, accepting a small
// line-oriented command set on stdin in place of the real UI the spec
// scopes out of this core (spec §9: cmd/cardlinkd is a thin wiring
// binary, not the real UI).
func serveCmd() *cobra.Command {
	var dialAddr, directoryURL, displayHint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the P2P messaging core",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}

			log, err := corelog.New(cfg.LogPath, cfg.Debug)
			if err != nil {
				return err
			}
			entry := log.WithField("component", "cardlinkd")

			staticKeys, certDER, err := persistence.NewIdentityStore(cfg.DBPath).Load(passphrase)
			if err != nil {
				fmt.Fprintln(os.Stderr, "no identity found; run 'cardlinkd init' first")
				os.Exit(int(config.ExitConfigError))
			}

			roots, err := loadRootCAs(cfg.RootCAPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "loading trust root:", err)
				os.Exit(int(config.ExitConfigError))
			}

			// The card is a stub here: the demo binary has no PKCS#11
			// module to open. A real cardlinkd build behind
			// cfg.PKCSModulePath would swap this for the DNIe-backed
			// domain.Card implementation; the Manager and its
			// serialization/lifecycle logic do not change either way.
			_, signerPriv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			cardMgr := card.NewManager(card.NewStub(certDER, signerPriv))

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cardCertDER, err := cardMgr.Certificate(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, "card unavailable:", err)
				os.Exit(int(config.ExitCardUnavailable))
			}

			contacts := persistence.NewContactFileStore(cfg.DBPath)
			messages := persistence.NewMessageFileStore(cfg.DBPath)
			cache := persistence.NewSessionCacheFileStore(cfg.DBPath)
			verifier := identitybinding.NewVerifier(roots, contacts)

			c := core.New(core.Config{
				HandshakeTimeout: secondsToDuration(cfg.HandshakeTimeoutSeconds),
				MessageRetry:     secondsToDuration(cfg.MessageRetrySeconds),
				IdleSuspend:      secondsToDuration(cfg.IdleSuspendSeconds),
			}, core.Deps{
				Identity: handshake.Identity{StaticKeys: staticKeys, CertDER: cardCertDER},
				Verifier: verifier,
				Card:     cardMgr,
				Contacts: contacts,
				Messages: messages,
				Cache:    cache,
				Log:      entry,
			})

			tr, err := transport.New(transport.Config{
				ListenAddr: &net.UDPAddr{IP: net.ParseIP(cfg.ListenIP), Port: cfg.UDPPort},
			}, c, entry)
			if err != nil {
				fmt.Fprintln(os.Stderr, "binding transport:", err)
				os.Exit(int(config.ExitTransportError))
			}
			c.SetSender(tr)

			c.OnInboundMessage(func(peer domain.Fingerprint, text string) {
				fmt.Printf("%s: %s\n", peer, text)
			})
			go printEvents(c)

			var dir *discovery.HTTPDirectory
			if directoryURL != "" {
				dir = discovery.NewHTTPDirectory(directoryURL, string(cryptoprim.FingerprintCertificate(cardCertDER)))
				if err := dir.Publish(ctx, cfg.UDPPort, displayHint); err != nil {
					entry.WithError(err).Warn("directory publish failed")
				}
				defer dir.Withdraw(context.Background())
				go autoDial(ctx, c, dir)
			}

			go func() {
				if err := tr.Run(ctx); err != nil && ctx.Err() == nil {
					entry.WithError(err).Error("transport stopped")
				}
			}()
			go func() {
				if err := c.Run(ctx); err != nil && ctx.Err() == nil {
					entry.WithError(err).Error("core stopped")
				}
			}()

			fmt.Printf("listening on %s\n", tr.LocalAddr())

			if dialAddr != "" {
				addr, err := net.ResolveUDPAddr("udp", dialAddr)
				if err != nil {
					return err
				}
				if err := c.Dial(addr); err != nil {
					return err
				}
			}

			runStdinLoop(ctx, c)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialAddr, "dial", "", "peer address to dial on startup (host:port)")
	cmd.Flags().StringVar(&directoryURL, "directory", "", "directory server base URL for peer discovery")
	cmd.Flags().StringVar(&displayHint, "display-hint", "", "display name published to the directory server")
	return cmd
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func loadRootCAs(path string) ([]*x509.Certificate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []*x509.Certificate
	rest := b
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no certificates found", path)
	}
	return out, nil
}

func printEvents(c *core.Core) {
	for ev := range c.Events() {
		switch ev.Kind {
		case domain.UIEventNewPeer:
			fmt.Printf("[new peer] %s (%s)\n", ev.Peer, ev.DisplayName)
		case domain.UIEventPeerConfirmed:
			fmt.Printf("[confirmed] %s\n", ev.Peer)
		case domain.UIEventPinMismatch:
			fmt.Printf("[PIN MISMATCH] %s presented a different certificate than before\n", ev.Peer)
		case domain.UIEventSessionClosed:
			fmt.Printf("[session closed] %s: %s\n", ev.Peer, ev.Reason)
		case domain.UIEventMessageDelivered:
			fmt.Printf("[delivered] %s\n", ev.UUID)
		case domain.UIEventMessageFailed:
			fmt.Printf("[failed] %s: %s\n", ev.UUID, ev.Reason)
		}
	}
}

func autoDial(ctx context.Context, c *core.Core, dir *discovery.HTTPDirectory) {
	hints, err := dir.Hints(ctx)
	if err != nil {
		return
	}
	for h := range hints {
		addr := &net.UDPAddr{IP: net.ParseIP(h.IP), Port: h.Port}
		_ = c.Dial(addr)
	}
}

func runStdinLoop(ctx context.Context, c *core.Core) {
	fmt.Println("commands: dial <host:port> | send <fingerprint> <text> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		switch fields[0] {
		case "dial":
			if len(fields) < 2 {
				fmt.Println("usage: dial <host:port>")
				continue
			}
			addr, err := net.ResolveUDPAddr("udp", fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := c.Dial(addr); err != nil {
				fmt.Println("error:", err)
			}
		case "send":
			if len(fields) < 3 {
				fmt.Println("usage: send <fingerprint> <text>")
				continue
			}
			uuid, err := c.SendMessage(domain.Fingerprint(fields[1]), fields[2])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("queued", uuid)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command")
		}
	}
}
