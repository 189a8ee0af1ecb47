package flags

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/reserve-attestation-registry/api"
	"github.com/ruteri/reserve-attestation-registry/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	log = common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(logServiceFlagName),
		Version: common.Version,
	})
	if cCtx.Bool(LogUidFlag.Name) {
		log = log.With("uid", uuid.Must(uuid.NewRandom()).String())
	}
	return log
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadHeaderTimeout:        10 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadPrivateKey parses a hex secp256k1 key, with or without 0x prefix.
func LoadPrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: []string{"RPC_ADDR"},
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry API server URL",
	EnvVars: []string{"REGISTRY_SERVER"},
}

var AdminKeyFlag = &cli.StringFlag{
	Name:    "admin-key",
	Usage:   "hex secp256k1 key signing admin requests",
	EnvVars: []string{"REGISTRY_ADMIN_KEY"},
}

var (
	LogJsonFlag = &cli.BoolFlag{
		Name:    "log-json",
		Usage:   "emit logs as JSON lines",
		EnvVars: []string{"LOG_JSON"},
	}
	LogDebugFlag = &cli.BoolFlag{
		Name:    "log-debug",
		Usage:   "include debug level logs",
		EnvVars: []string{"LOG_DEBUG"},
	}
	LogUidFlag = &cli.BoolFlag{
		Name:  "log-uid",
		Usage: "tag every log line with a per-process uuid",
	}
)

// LogServiceFlagFn builds the log-service flag defaulting to the binary's name.
func LogServiceFlagFn(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  logServiceFlagName,
		Value: service,
		Usage: "service tag attached to every log line",
	}
}

const logServiceFlagName = "log-service"

var (
	PprofFlag = &cli.BoolFlag{
		Name:  "pprof",
		Usage: "mount pprof handlers under /debug",
	}
	DrainSecondsFlag = &cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "how long /drain reports not-ready before completing",
	}
	MetricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Value: "127.0.0.1:8090",
		Usage: "Prometheus listener address, empty to disable",
	}
)

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
