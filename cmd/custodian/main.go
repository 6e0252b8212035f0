package main

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/api/clients"
	"github.com/ruteri/share-recovery-backend/cmd/flags"
	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/resharing"
	"github.com/urfave/cli/v2"
)

var flagPrivkey = &cli.StringFlag{
	Name:  "privkey-file",
	Value: "custodian-private.pem",
	Usage: "Path to custodian private key",
}
var flagPubkey = &cli.StringFlag{
	Name:  "pubkey-file",
	Value: "custodian-public.pem",
	Usage: "Path to custodian public key",
}
var flagRegistry = &cli.StringFlag{
	Name:  "registry-file",
	Value: "custodians.json",
	Usage: "Path to the custodian registry document",
}
var flagPubkeyFiles = &cli.StringSliceFlag{
	Name:  "pubkey-files",
	Usage: "custodian public key PEM files to include in the registry",
}
var flagSession = &cli.StringFlag{
	Name:     "session",
	Required: true,
	Usage:    "session identifier",
}
var flagSessionK = &cli.IntFlag{
	Name:  "k",
	Value: 2,
	Usage: "recovery threshold for the session",
}
var flagSessionExpected = &cli.IntFlag{
	Name:  "expected",
	Value: 2,
	Usage: "number of custodians expected to submit",
}
var flagSessionMaxCombinations = &cli.Uint64Flag{
	Name:  "max-combinations",
	Value: 0,
	Usage: "candidate subsets to evaluate at most (0 = server default)",
}
var flagSessionTimeoutMs = &cli.Int64Flag{
	Name:  "timeout-ms",
	Value: 0,
	Usage: "detection deadline in milliseconds (0 = server default)",
}
var flagShareX = &cli.StringFlag{
	Name:     "x",
	Required: true,
	Usage:    "share x coordinate, decimal",
}
var flagShareY = &cli.StringFlag{
	Name:     "y",
	Required: true,
	Usage:    "share y coordinate, decimal",
}
var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 0,
	Usage: "threshold for reissued shares (0 = session threshold)",
}
var flagReissueFile = &cli.StringFlag{
	Name:  "reissue-file",
	Value: "reissue.json",
	Usage: "Path to a saved reissue response",
}
var flagShareParts = &cli.StringSliceFlag{
	Name:  "share",
	Usage: "base64 decrypted share part; repeat once per custodian",
}

func main() {
	app := &cli.App{
		Name:  "custodian",
		Usage: "Hold, submit and rotate recovery shares",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.DiscoverFlag,
			flags.LogJsonFlag,
			flags.LogDebugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "generate-key",
				Usage: "Generate a custodian ECDSA key pair",
				Flags: []cli.Flag{flagPrivkey, flagPubkey},
				Action: func(cCtx *cli.Context) error {
					privateKeyPEM, publicKeyPEM, err := cryptoutils.GenerateCustodianKeyPair()
					if err != nil {
						return err
					}

					if err := os.WriteFile(cCtx.String(flagPrivkey.Name), []byte(privateKeyPEM), 0600); err != nil {
						return err
					}
					if err := os.WriteFile(cCtx.String(flagPubkey.Name), []byte(publicKeyPEM), 0600); err != nil {
						return err
					}

					fmt.Println(cryptoutils.ComputeFingerprint([]byte(publicKeyPEM)))
					return nil
				},
			},
			{
				Name:  "fingerprint",
				Usage: "Print the custodian ID for a public key",
				Flags: []cli.Flag{flagPubkey},
				Action: func(cCtx *cli.Context) error {
					publicKeyPEM, err := os.ReadFile(cCtx.String(flagPubkey.Name))
					if err != nil {
						return err
					}
					fmt.Println(cryptoutils.ComputeFingerprint(publicKeyPEM))
					return nil
				},
			},
			{
				Name:        "generate-registry",
				Usage:       "Build a custodian registry document from public key files",
				Description: "Entry IDs are the key fingerprints; the server rejects registries where they do not match.",
				Flags:       []cli.Flag{flagRegistry, flagPubkeyFiles},
				Action:      runGenerateRegistry,
			},
			{
				Name:   "create-session",
				Usage:  "Open a share collection session",
				Flags:  []cli.Flag{flagPrivkey, flagPubkey, flagSessionK, flagSessionExpected, flagSessionMaxCombinations, flagSessionTimeoutMs},
				Action: runCreateSession,
			},
			{
				Name:        "submit-share",
				Usage:       "Submit this custodian's share to a session",
				Description: "The share is recorded under the authenticated custodian ID. Detection starts automatically once the expected number of custodians have submitted.",
				Flags:       []cli.Flag{flagPrivkey, flagPubkey, flagSession, flagShareX, flagShareY},
				Action:      runSubmitShare,
			},
			{
				Name:   "session-status",
				Usage:  "Fetch session state, including the report once detection is complete",
				Flags:  []cli.Flag{flagPrivkey, flagPubkey, flagSession},
				Action: runSessionStatus,
			},
			{
				Name:        "reissue",
				Usage:       "Request fresh shares for the custodians that submitted correct ones",
				Description: "Only valid on a completed session. Each reissued share is encrypted to its custodian's public key; save the response and hand it out for decrypt-share.",
				Flags:       []cli.Flag{flagPrivkey, flagPubkey, flagSession, flagThreshold},
				Action:      runReissue,
			},
			{
				Name:        "decrypt-share",
				Usage:       "Decrypt this custodian's reissued share",
				Description: "Looks up the entry addressed to this custodian in a saved reissue response and prints the decrypted share part as base64.",
				Flags:       []cli.Flag{flagPrivkey, flagPubkey, flagReissueFile},
				Action:      runDecryptShare,
			},
			{
				Name:        "combine",
				Usage:       "Combine decrypted share parts back into the secret",
				Description: "Takes threshold-many parts produced by decrypt-share and prints the reconstructed secret.",
				Flags:       []cli.Flag{flagShareParts},
				Action:      runCombine,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadCredentials reads the key pair files and derives the custodian ID
// from the public key fingerprint.
func loadCredentials(cCtx *cli.Context) (string, *ecdsa.PrivateKey, []byte, error) {
	publicKeyPEM, err := os.ReadFile(cCtx.String(flagPubkey.Name))
	if err != nil {
		return "", nil, nil, err
	}
	custodianID := cryptoutils.ComputeFingerprint(publicKeyPEM)

	privateKeyPEM, err := os.ReadFile(cCtx.String(flagPrivkey.Name))
	if err != nil {
		return "", nil, nil, err
	}
	privateKey, err := cryptoutils.ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", nil, nil, err
	}

	return custodianID, privateKey, privateKeyPEM, nil
}

func newSessionClient(cCtx *cli.Context) (*clients.CustodianClient, error) {
	custodianID, privateKey, _, err := loadCredentials(cCtx)
	if err != nil {
		return nil, err
	}

	serverAddr, err := flags.ResolveServerAddr(cCtx, flags.SetupLogger(cCtx))
	if err != nil {
		return nil, err
	}
	return clients.NewCustodianClient(serverAddr, custodianID, privateKey), nil
}

func runGenerateRegistry(cCtx *cli.Context) error {
	registry := struct {
		Custodians []interfaces.CustodianRecord `json:"custodians"`
	}{}

	for _, pubkeyFile := range cCtx.StringSlice(flagPubkeyFiles.Name) {
		publicKeyPEM, err := os.ReadFile(pubkeyFile)
		if err != nil {
			return err
		}
		if _, err := cryptoutils.ParsePublicKey(publicKeyPEM); err != nil {
			return fmt.Errorf("%s: %w", pubkeyFile, err)
		}

		registry.Custodians = append(registry.Custodians, interfaces.CustodianRecord{
			ID:     cryptoutils.ComputeFingerprint(publicKeyPEM),
			PubKey: string(publicKeyPEM),
		})
	}

	registryBytes, err := json.Marshal(registry)
	if err != nil {
		return err
	}
	return os.WriteFile(cCtx.String(flagRegistry.Name), registryBytes, 0600)
}

func runCreateSession(cCtx *cli.Context) error {
	client, err := newSessionClient(cCtx)
	if err != nil {
		return err
	}

	response, err := client.CreateSession(api.CreateSessionRequest{
		K:               cCtx.Int(flagSessionK.Name),
		Expected:        cCtx.Int(flagSessionExpected.Name),
		MaxCombinations: cCtx.Uint64(flagSessionMaxCombinations.Name),
		TimeoutMs:       cCtx.Int64(flagSessionTimeoutMs.Name),
	})
	if err != nil {
		return fmt.Errorf("session creation failed: %w", err)
	}
	return printJSON(response)
}

func runSubmitShare(cCtx *cli.Context) error {
	client, err := newSessionClient(cCtx)
	if err != nil {
		return err
	}

	status, err := client.SubmitShare(cCtx.String(flagSession.Name), api.SubmitShareRequest{
		X: cCtx.String(flagShareX.Name),
		Y: cCtx.String(flagShareY.Name),
	})
	if err != nil {
		return fmt.Errorf("share submission failed: %w", err)
	}
	return printJSON(status)
}

func runSessionStatus(cCtx *cli.Context) error {
	client, err := newSessionClient(cCtx)
	if err != nil {
		return err
	}

	status, err := client.GetSession(cCtx.String(flagSession.Name))
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}
	return printJSON(status)
}

func runReissue(cCtx *cli.Context) error {
	client, err := newSessionClient(cCtx)
	if err != nil {
		return err
	}

	response, err := client.Reissue(cCtx.String(flagSession.Name), api.ReissueRequest{
		Threshold: cCtx.Int(flagThreshold.Name),
	})
	if err != nil {
		return fmt.Errorf("reissue failed: %w", err)
	}
	return printJSON(response)
}

func runDecryptShare(cCtx *cli.Context) error {
	custodianID, _, privateKeyPEM, err := loadCredentials(cCtx)
	if err != nil {
		return err
	}

	reissueJSON, err := os.ReadFile(cCtx.String(flagReissueFile.Name))
	if err != nil {
		return err
	}
	var reissued api.ReissueResponse
	if err := json.Unmarshal(reissueJSON, &reissued); err != nil {
		return err
	}

	for _, share := range reissued.Shares {
		if share.CustodianID != custodianID {
			continue
		}
		part, err := cryptoutils.DecryptWithPrivateKey(privateKeyPEM, share.EncryptedShare)
		if err != nil {
			return fmt.Errorf("could not decrypt share: %w", err)
		}
		fmt.Println(base64.StdEncoding.EncodeToString(part))
		return nil
	}

	return fmt.Errorf("no share addressed to custodian %s", custodianID)
}

func runCombine(cCtx *cli.Context) error {
	encodedParts := cCtx.StringSlice(flagShareParts.Name)
	parts := make([][]byte, 0, len(encodedParts))
	for _, encoded := range encodedParts {
		part, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("share part is not valid base64: %w", err)
		}
		parts = append(parts, part)
	}

	secret, err := resharing.CombineReissued(parts)
	if err != nil {
		return fmt.Errorf("combine failed: %w", err)
	}
	fmt.Println(secret.String())
	return nil
}

func printJSON(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
