package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/share-recovery-backend/api/recoveryhandler"
	"github.com/ruteri/share-recovery-backend/cmd/flags"
	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/httpserver"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/recovery"
	"github.com/ruteri/share-recovery-backend/storage"
	"github.com/urfave/cli/v2"
)

var RecoveryServiceLogFlag = flags.LogServiceFlagFn("recovery-server")

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Usage: "storage backend URI (file://, s3://, ipfs://, vault://); repeat for replication. Without it share sets and reports are not persisted",
}
var CustodianKeysFlag = &cli.StringFlag{
	Name:  "custodian-keys-file",
	Value: "",
	Usage: "JSON file with custodian public keys; required for the session API",
}
var WorkersFlag = &cli.IntFlag{
	Name:  "workers",
	Value: 0,
	Usage: "parallel detection workers (0 = number of CPUs)",
}
var MaxCombinationsFlag = &cli.Uint64Flag{
	Name:  "max-combinations",
	Value: 1_000_000,
	Usage: "hard cap on candidate subsets evaluated per request",
}
var MaxTimeoutFlag = &cli.Int64Flag{
	Name:  "max-timeout-seconds",
	Value: 60,
	Usage: "hard cap on per-request detection deadline",
}
var DefaultTimeoutFlag = &cli.Int64Flag{
	Name:  "default-timeout-seconds",
	Value: 30,
	Usage: "detection deadline applied when the request does not set one",
}

func main() {
	app := &cli.App{
		Name:  "recovery-server",
		Usage: "Serve the share recovery API",
		Flags: append([]cli.Flag{
			ListenAddrFlag,
			StorageFlag,
			CustodianKeysFlag,
			WorkersFlag,
			MaxCombinationsFlag,
			MaxTimeoutFlag,
			DefaultTimeoutFlag,
			RecoveryServiceLogFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(ListenAddrFlag.Name)
			storageURIs := cCtx.StringSlice(StorageFlag.Name)
			custodianKeysFile := cCtx.String(CustodianKeysFlag.Name)
			workers := cCtx.Int(WorkersFlag.Name)

			logger := flags.SetupLogger(cCtx)

			// Storage is optional: without it the server still answers
			// one-shot recovery but cannot persist share sets or reports.
			var store interfaces.StorageBackend
			if len(storageURIs) > 0 {
				locations := make([]interfaces.StorageBackendLocation, 0, len(storageURIs))
				for _, uri := range storageURIs {
					location, err := interfaces.NewStorageBackendLocation(uri)
					if err != nil {
						logger.Error("Invalid storage URI", "err", err, "uri", uri)
						return fmt.Errorf("invalid storage URI %q: %w", uri, err)
					}
					locations = append(locations, location)
				}

				storageFactory := storage.NewStorageBackendFactory(logger)
				multiStore, err := storageFactory.CreateMultiBackend(locations)
				if err != nil {
					logger.Error("Failed to create storage backend", "err", err)
					return err
				}
				store = multiStore
				logger.Info("Storage configured", "backends", len(locations))
			} else {
				logger.Warn("No storage configured, share sets and reports will not be persisted")
			}

			var custodians map[string][]byte
			if custodianKeysFile != "" {
				logger.Info("Loading custodian keys", "file", custodianKeysFile)
				custodianKeysData, err := os.Open(custodianKeysFile)
				if err != nil {
					logger.Error("Failed to open custodian keys file", "err", err)
					return err
				}
				custodians, err = cryptoutils.LoadCustodianKeys(custodianKeysData)
				custodianKeysData.Close()
				if err != nil {
					logger.Error("Failed to load custodian keys", "err", err)
					return err
				}
				logger.Info("Custodian keys loaded", "count", len(custodians))
			} else {
				logger.Warn("No custodian keys configured, session API disabled")
			}

			limits := recoveryhandler.Limits{
				MaxCombinations: cCtx.Uint64(MaxCombinationsFlag.Name),
				MaxTimeout:      time.Duration(cCtx.Int64(MaxTimeoutFlag.Name)) * time.Second,
				DefaultTimeout:  time.Duration(cCtx.Int64(DefaultTimeoutFlag.Name)) * time.Second,
			}

			detector := recovery.NewDetector(logger, workers)
			handler := recoveryhandler.NewHandler(detector, store, custodians, limits, logger)

			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, listenAddr), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
