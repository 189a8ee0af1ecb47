package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/reserve-attestation-registry/api/handlers"
	"github.com/ruteri/reserve-attestation-registry/api/servers"
	"github.com/ruteri/reserve-attestation-registry/cmd/flags"
	"github.com/ruteri/reserve-attestation-registry/common"
	"github.com/ruteri/reserve-attestation-registry/coordinator"
	"github.com/ruteri/reserve-attestation-registry/events"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/ruteri/reserve-attestation-registry/metrics"
	"github.com/ruteri/reserve-attestation-registry/registry"
	"github.com/ruteri/reserve-attestation-registry/storage"
	"github.com/ruteri/reserve-attestation-registry/verifier"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

var (
	flagListenAddr = &cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	}
	flagRegistryMode = &cli.StringFlag{
		Name:  "registry",
		Value: "memory",
		Usage: "registry implementation: 'memory' or 'onchain'",
	}
	flagRegistryAddr = &cli.StringFlag{
		Name:  "registry-address",
		Value: "0x0000000000000000000000000000000000000001",
		Usage: "asset registry contract address (required for onchain)",
	}
	flagOwner = &cli.StringFlag{
		Name:     "owner",
		Required: true,
		Usage:    "account allowed to sign admin requests",
		EnvVars:  []string{"REGISTRY_OWNER"},
	}
	flagCoordinatorKey = &cli.StringFlag{
		Name:    "coordinator-key",
		Usage:   "hex key the coordinator transacts with; its address must own the registry",
		EnvVars: []string{"COORDINATOR_KEY"},
	}
	flagFeedConfig = &cli.StringFlag{
		Name:  "feed-config",
		Usage: "JSON file with trusted reporters per feed",
	}
	flagReportBoardURL = &cli.StringFlag{
		Name:  "report-board-url",
		Usage: "read reports from a remote board instead of the local one, e.g. http://host:8080/api/reports",
	}
	flagStorage = &cli.StringSliceFlag{
		Name:  "storage",
		Usage: "document archive location URI (file://, s3://, vault://, github://); repeatable",
	}
	flagKafkaBrokers = &cli.StringSliceFlag{
		Name:  "kafka-brokers",
		Usage: "publish registry events to these Kafka seed brokers",
	}
	flagKafkaTopic = &cli.StringFlag{
		Name:  "kafka-topic",
		Value: "reserve-registry-events",
		Usage: "Kafka topic for registry events",
	}
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the reserve attestation registry API",
		Flags: append([]cli.Flag{
			flagListenAddr,
			flags.RpcAddrFlag,
			flagRegistryMode,
			flagRegistryAddr,
			flagOwner,
			flagCoordinatorKey,
			flagFeedConfig,
			flagReportBoardURL,
			flagStorage,
			flagKafkaBrokers,
			flagKafkaTopic,
			flags.LogServiceFlagFn(common.PackageName),
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))

	owner := cCtx.String(flagOwner.Name)
	if !ethcommon.IsHexAddress(owner) {
		return fmt.Errorf("invalid owner address %q", owner)
	}

	coordinatorKey, err := loadCoordinatorKey(cCtx, logger)
	if err != nil {
		return err
	}
	self := crypto.PubkeyToAddress(coordinatorKey.PublicKey)

	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	sink := events.Fanout{
		events.NewLogSink(logger),
		events.NewMetricsSink(metricsSrv.Namespace(), metricsSrv.Registerer()),
	}
	if brokers := cCtx.StringSlice(flagKafkaBrokers.Name); len(brokers) > 0 {
		kafkaClient, err := events.NewKafkaClient(brokers, common.PackageName)
		if err != nil {
			logger.Error("Failed to connect to Kafka", "err", err)
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := kafkaClient.Flush(flushCtx); err != nil {
				logger.Warn("Kafka flush incomplete, buffered events dropped", "err", err)
			}
			kafkaClient.Close()
		}()

		topic := cCtx.String(flagKafkaTopic.Name)
		logger.Info("Publishing registry events to Kafka", "brokers", brokers, "topic", topic)
		sink = append(sink, events.NewKafkaSink(kafkaClient, topic, logger))
	}

	// The local board only holds reports that pass the quorum check, even
	// when proofs are verified against a remote board.
	var quorum *verifier.QuorumVerifier
	var board *verifier.ReportBoard
	if boardURL := cCtx.String(flagReportBoardURL.Name); boardURL != "" {
		logger.Info("Reading reports from remote board", "url", boardURL)
		quorum = verifier.NewQuorumVerifier(&verifier.HTTPReportSource{BaseURL: boardURL}, logger)
		board = verifier.NewReportBoard(quorum)
	} else {
		quorum = verifier.NewQuorumVerifier(nil, logger)
		board = quorum.Board()
	}
	if path := cCtx.String(flagFeedConfig.Name); path != "" {
		if err := configureFeeds(quorum, path); err != nil {
			logger.Error("Failed to load feed configuration", "file", path, "err", err)
			return err
		}
	} else {
		logger.Warn("No feed configuration given, every proof submission will fail verification")
	}

	reg, resolver, err := openRegistry(cCtx, logger, coordinatorKey, sink)
	if err != nil {
		logger.Error("Failed to open registry", "err", err)
		return err
	}

	coord, err := coordinator.NewCoordinator(self, ethcommon.HexToAddress(owner), reg, quorum,
		coordinator.WithEventSink(sink),
		coordinator.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create coordinator", "err", err)
		return err
	}

	var archive interfaces.StorageBackend
	if locations := cCtx.StringSlice(flagStorage.Name); len(locations) > 0 {
		archive, err = storage.NewStorageBackendFactory(logger).CreateMultiBackend(
			lo.Map(locations, func(location string, _ int) interfaces.StorageBackendLocation {
				return interfaces.StorageBackendLocation(location)
			}))
		if err != nil {
			logger.Error("Failed to create document archive", "err", err)
			return err
		}
		logger.Info("Document archive configured", "location", archive.LocationURI())
	}

	handler := handlers.NewHandler(coord, board, archive, resolver, logger)
	server := servers.NewWithMetrics(cfg, metricsSrv, handler)

	logger.Info("Starting server",
		"coordinator", self.Hex(),
		"owner", coord.Owner().Hex(),
		"registry", reg.Address().Hex())
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func loadCoordinatorKey(cCtx *cli.Context, logger *slog.Logger) (*ecdsa.PrivateKey, error) {
	if hexKey := cCtx.String(flagCoordinatorKey.Name); hexKey != "" {
		return flags.LoadPrivateKey(hexKey)
	}
	if cCtx.String(flagRegistryMode.Name) == "onchain" {
		return nil, errors.New("coordinator-key is required for the onchain registry")
	}

	logger.Warn("No coordinator key given, using an ephemeral identity")
	return crypto.GenerateKey()
}

func configureFeeds(quorum *verifier.QuorumVerifier, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	configs, err := verifier.LoadFeedConfigs(file)
	if err != nil {
		return err
	}
	return quorum.Configure(configs)
}

// openRegistry returns the registry the coordinator starts with and, for the
// onchain registry, a resolver for later reference updates.
func openRegistry(cCtx *cli.Context, logger *slog.Logger, key *ecdsa.PrivateKey, sink interfaces.EventSink) (interfaces.AssetRegistry, handlers.RegistryResolver, error) {
	registryAddr := cCtx.String(flagRegistryAddr.Name)
	if !ethcommon.IsHexAddress(registryAddr) {
		return nil, nil, fmt.Errorf("invalid registry address %q", registryAddr)
	}
	address := ethcommon.HexToAddress(registryAddr)

	switch mode := cCtx.String(flagRegistryMode.Name); mode {
	case "memory":
		logger.Info("Using in-memory registry", "address", address.Hex())
		reg, err := registry.NewMemoryRegistry(address, crypto.PubkeyToAddress(key.PublicKey),
			registry.WithEventSink(sink),
			registry.WithLogger(logger))
		return reg, nil, err

	case "onchain":
		rpcAddress := cCtx.String(flags.RpcAddrFlag.Name)
		logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
		ethClient, err := ethclient.Dial(rpcAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial RPC: %w", err)
		}

		chainID, err := ethClient.ChainID(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, nil, err
		}

		factory := registry.NewRegistryFactory(ethClient, ethClient, auth)
		reg, err := factory.RegistryFor(address)
		if err != nil {
			return nil, nil, err
		}
		return reg, factory, nil

	default:
		return nil, nil, fmt.Errorf("invalid registry mode: %s", mode)
	}
}
