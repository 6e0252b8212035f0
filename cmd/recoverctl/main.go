package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/api/clients"
	"github.com/ruteri/share-recovery-backend/cmd/flags"
	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/recovery"
	"github.com/ruteri/share-recovery-backend/serviceresolver"
	"github.com/ruteri/share-recovery-backend/shareutils"
	"github.com/urfave/cli/v2"
)

// sealPassphraseEnv names the environment variable read by --seal-output
// and the unseal command. Passphrases never travel through argv.
const sealPassphraseEnv = "RECOVERY_PASSPHRASE"

var flagDocumentFile = &cli.StringFlag{
	Name:     "file",
	Required: true,
	Usage:    "path to the share-set document",
}
var flagMaxCombinations = &cli.Uint64Flag{
	Name:  "max-combinations",
	Value: 0,
	Usage: "candidate subsets to evaluate at most (0 = server default)",
}
var flagTimeoutMs = &cli.Int64Flag{
	Name:  "timeout-ms",
	Value: 0,
	Usage: "detection deadline in milliseconds (0 = server default)",
}
var flagLocal = &cli.BoolFlag{
	Name:  "local",
	Value: false,
	Usage: "run detection in-process instead of calling the server",
}
var flagWorkers = &cli.IntFlag{
	Name:  "workers",
	Value: 0,
	Usage: "parallel workers for --local detection (0 = number of CPUs)",
}
var flagSealOutput = &cli.StringFlag{
	Name:  "seal-output",
	Value: "",
	Usage: "write the recovered secret passphrase-sealed to this file instead of printing it; reads " + sealPassphraseEnv,
}
var flagReportID = &cli.StringFlag{
	Name:     "report-id",
	Required: true,
	Usage:    "hex identifier of a stored recovery report",
}
var flagSVG = &cli.BoolFlag{
	Name:  "svg",
	Value: false,
	Usage: "fetch the SVG rendering instead of the JSON report",
}
var flagOutput = &cli.StringFlag{
	Name:  "output",
	Value: "",
	Usage: "write to this file instead of stdout",
}
var flagShareCount = &cli.IntFlag{
	Name:  "n",
	Value: 5,
	Usage: "number of shares to generate",
}
var flagThreshold = &cli.IntFlag{
	Name:  "k",
	Value: 3,
	Usage: "recovery threshold",
}
var flagSecret = &cli.StringFlag{
	Name:  "secret",
	Value: "",
	Usage: "decimal secret to split (random when empty)",
}
var flagCorrupt = &cli.IntSliceFlag{
	Name:  "corrupt",
	Usage: "share indices (1-based) to plant wrong values into; repeatable",
}
var flagServiceName = &cli.StringFlag{
	Name:     "name",
	Required: true,
	Usage:    "service domain to resolve via DNS SRV",
}

func main() {
	app := &cli.App{
		Name:  "recoverctl",
		Usage: "Operate the share recovery service",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.DiscoverFlag,
			flags.LogJsonFlag,
			flags.LogDebugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:        "recover",
				Usage:       "Recover a secret from a share-set document",
				Description: "Parses the document, runs wrong-share detection and prints the classification. With --seal-output the secret is written passphrase-sealed instead of printed.",
				Flags: []cli.Flag{
					flagDocumentFile,
					flagMaxCombinations,
					flagTimeoutMs,
					flagLocal,
					flagWorkers,
					flagSealOutput,
				},
				Action: runRecover,
			},
			{
				Name:        "upload",
				Usage:       "Upload a share-set document for later recovery",
				Description: "Stores the document under its content hash and prints the identifier.",
				Flags:       []cli.Flag{flagDocumentFile},
				Action:      runUpload,
			},
			{
				Name:        "report",
				Usage:       "Fetch a stored recovery report",
				Flags:       []cli.Flag{flagReportID, flagSVG, flagOutput},
				Action:      runReport,
			},
			{
				Name:        "generate",
				Usage:       "Generate a test share-set document",
				Description: "Splits a secret over a random polynomial and writes the catalog document. Indices named by --corrupt get wrong values planted, for exercising detection.",
				Flags: []cli.Flag{
					flagShareCount,
					flagThreshold,
					flagSecret,
					flagCorrupt,
					flagOutput,
				},
				Action: runGenerate,
			},
			{
				Name:   "unseal",
				Usage:  "Print a secret sealed by recover --seal-output; reads " + sealPassphraseEnv,
				Flags:  []cli.Flag{flagDocumentFile},
				Action: runUnseal,
			},
			{
				Name:   "resolve",
				Usage:  "Resolve recovery service replicas via DNS SRV",
				Flags:  []cli.Flag{flagServiceName},
				Action: runResolve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runRecover(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	document, err := os.ReadFile(cCtx.String(flagDocumentFile.Name))
	if err != nil {
		return fmt.Errorf("could not read share-set document: %w", err)
	}

	maxCombinations := cCtx.Uint64(flagMaxCombinations.Name)
	timeoutMs := cCtx.Int64(flagTimeoutMs.Name)

	var response *api.RecoverResponse
	if cCtx.Bool(flagLocal.Name) {
		response, err = recoverLocally(cCtx, document, maxCombinations, timeoutMs)
	} else {
		var serverAddr string
		serverAddr, err = flags.ResolveServerAddr(cCtx, logger)
		if err != nil {
			return err
		}
		client := clients.NewRecoveryClient(serverAddr)
		response, err = client.Recover(api.RecoverRequest{
			Document:        string(document),
			MaxCombinations: maxCombinations,
			TimeoutMs:       timeoutMs,
		})
	}
	if err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	if sealOutput := cCtx.String(flagSealOutput.Name); sealOutput != "" {
		if err := sealSecretToFile(response.Secret, sealOutput); err != nil {
			return err
		}
		logger.Info("Sealed recovered secret", "file", sealOutput)
		response.Secret = ""
	}

	return printJSON(response)
}

// recoverLocally runs detection in-process. Unset budget fields fall back to
// the same defaults the server applies.
func recoverLocally(cCtx *cli.Context, document []byte, maxCombinations uint64, timeoutMs int64) (*api.RecoverResponse, error) {
	set, err := shareutils.ParseShareSetDocument(document)
	if err != nil {
		return nil, err
	}

	if maxCombinations == 0 {
		maxCombinations = 1_000_000
	}
	timeout := 30 * time.Second
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	budget := interfaces.Budget{
		MaxCombinations: maxCombinations,
		Deadline:        time.Now().Add(timeout),
	}

	detector := recovery.NewDetector(flags.SetupLogger(cCtx), cCtx.Int(flagWorkers.Name))
	cls, stats, err := detector.DetectWithStats(context.Background(), set.Shares, set.K, budget)
	if err != nil {
		return nil, err
	}

	return &api.RecoverResponse{
		Secret:            cls.Secret.String(),
		InlierIDs:         cls.InlierIDs,
		WrongIDs:          cls.WrongIDs,
		CombinationsTried: stats.CombinationsTried,
	}, nil
}

func runUpload(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	document, err := os.ReadFile(cCtx.String(flagDocumentFile.Name))
	if err != nil {
		return fmt.Errorf("could not read share-set document: %w", err)
	}

	serverAddr, err := flags.ResolveServerAddr(cCtx, logger)
	if err != nil {
		return err
	}

	response, err := clients.NewRecoveryClient(serverAddr).UploadShareSet(document)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return printJSON(response)
}

func runReport(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	serverAddr, err := flags.ResolveServerAddr(cCtx, logger)
	if err != nil {
		return err
	}
	client := clients.NewRecoveryClient(serverAddr)
	reportID := cCtx.String(flagReportID.Name)

	if cCtx.Bool(flagSVG.Name) {
		svg, err := client.GetReportSVG(reportID)
		if err != nil {
			return fmt.Errorf("report request failed: %w", err)
		}
		return writeOutput(cCtx, svg)
	}

	report, err := client.GetReport(reportID)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cCtx, append(encoded, '\n'))
}

func runGenerate(cCtx *cli.Context) error {
	n := cCtx.Int(flagShareCount.Name)
	k := cCtx.Int(flagThreshold.Name)
	if k < 1 || n < k {
		return fmt.Errorf("need 1 <= k <= n, got k=%d n=%d", k, n)
	}

	secret := new(big.Int)
	if s := cCtx.String(flagSecret.Name); s != "" {
		if _, ok := secret.SetString(s, 10); !ok {
			return fmt.Errorf("could not parse secret %q as a decimal integer", s)
		}
	} else {
		random, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
		if err != nil {
			return err
		}
		secret = random
	}

	shares, err := splitSecret(secret, n, k)
	if err != nil {
		return err
	}
	if err := corruptShares(shares, cCtx.IntSlice(flagCorrupt.Name)); err != nil {
		return err
	}

	document, err := shareutils.EncodeShareSet(interfaces.ShareSet{K: k, Shares: shares})
	if err != nil {
		return err
	}
	return writeOutput(cCtx, document)
}

// splitSecret evaluates a random degree-(k-1) polynomial with constant term
// secret at x = 1..n. Share IDs are the decimal x values, matching how the
// catalog document derives share coordinates.
func splitSecret(secret *big.Int, n, k int) ([]interfaces.Share, error) {
	coefficientBound := new(big.Int).Lsh(big.NewInt(1), 128)
	coefficients := make([]*big.Int, k)
	coefficients[0] = secret
	for j := 1; j < k; j++ {
		c, err := rand.Int(rand.Reader, coefficientBound)
		if err != nil {
			return nil, err
		}
		coefficients[j] = c
	}

	shares := make([]interfaces.Share, 0, n)
	for i := 1; i <= n; i++ {
		x := big.NewInt(int64(i))
		// Horner evaluation of the polynomial at x.
		y := new(big.Int)
		for j := len(coefficients) - 1; j >= 0; j-- {
			y.Mul(y, x)
			y.Add(y, coefficients[j])
		}
		share, err := interfaces.NewShare(strconv.Itoa(i), x, y)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// corruptShares offsets the y value of the named shares by a random nonzero
// delta so detection has something to find.
func corruptShares(shares []interfaces.Share, indices []int) error {
	for _, index := range indices {
		if index < 1 || index > len(shares) {
			return fmt.Errorf("corrupt index %d out of range 1..%d", index, len(shares))
		}
		delta, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return err
		}
		delta.Add(delta, big.NewInt(1))
		shares[index-1].Y.Add(shares[index-1].Y, delta)
	}
	return nil
}

func runUnseal(cCtx *cli.Context) error {
	encoded, err := os.ReadFile(cCtx.String(flagDocumentFile.Name))
	if err != nil {
		return err
	}
	sealed, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return fmt.Errorf("sealed file is not valid base64: %w", err)
	}

	passphrase := os.Getenv(sealPassphraseEnv)
	if passphrase == "" {
		return errors.New(sealPassphraseEnv + " is not set")
	}

	secret, err := cryptoutils.OpenSecret([]byte(passphrase), sealed)
	if err != nil {
		return fmt.Errorf("could not open sealed secret: %w", err)
	}
	fmt.Println(string(secret))
	return nil
}

func runResolve(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	info, err := serviceresolver.ResolveRecoveryService(logger, cCtx.String(flagServiceName.Name))
	if err != nil {
		return err
	}
	return printJSON(info)
}

func sealSecretToFile(secret, path string) error {
	passphrase := os.Getenv(sealPassphraseEnv)
	if passphrase == "" {
		return errors.New(sealPassphraseEnv + " is not set")
	}

	sealed, err := cryptoutils.SealSecret([]byte(passphrase), []byte(secret))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(sealed)), 0600)
}

func printJSON(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func writeOutput(cCtx *cli.Context, data []byte) error {
	if output := cCtx.String(flagOutput.Name); output != "" {
		return os.WriteFile(output, data, 0644)
	}
	_, err := os.Stdout.Write(data)
	return err
}
