package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/api"
	"github.com/ruteri/reserve-attestation-registry/api/clients"
	"github.com/ruteri/reserve-attestation-registry/cmd/flags"
	"github.com/ruteri/reserve-attestation-registry/ingestion"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/ruteri/reserve-attestation-registry/verifier"
	"github.com/urfave/cli/v2"
)

var (
	flagCode = &cli.StringFlag{
		Name:     "code",
		Required: true,
		Usage:    "asset code, human-readable or 0x-prefixed",
	}
	flagFeed = &cli.StringFlag{
		Name:     "feed",
		Required: true,
		Usage:    "feed name or 0x-prefixed feed id",
	}
	flagFile = &cli.StringFlag{
		Name:     "file",
		Required: true,
		Usage:    "input file",
	}
	flagHash = &cli.StringFlag{
		Name:     "hash",
		Required: true,
		Usage:    "0x-prefixed document fingerprint",
	}
	flagAddress = &cli.StringFlag{
		Name:     "address",
		Required: true,
		Usage:    "account or contract address",
	}
	flagReporterKey = &cli.StringSliceFlag{
		Name:     "reporter-key",
		Required: true,
		Usage:    "hex key of a feed reporter; repeat for every co-signer",
		EnvVars:  []string{"REPORTER_KEY"},
	}
	flagValue = &cli.StringFlag{
		Name:     "value",
		Required: true,
		Usage:    "observed value in base units",
	}
	flagObservedAt = &cli.Int64Flag{
		Name:  "observed-at",
		Usage: "unix seconds of the observation, defaults to now",
	}
	flagOutput = &cli.StringFlag{
		Name:  "output",
		Usage: "write the document here instead of stdout",
	}
)

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Query and administer a reserve attestation registry",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.AdminKeyFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list every registered asset code",
				Action: func(cCtx *cli.Context) error {
					return printResult(client(cCtx).ListAssets(cCtx.Context))
				},
			},
			{
				Name:  "get",
				Usage: "show an active asset record",
				Flags: []cli.Flag{flagCode},
				Action: func(cCtx *cli.Context) error {
					return printResult(client(cCtx).GetAsset(cCtx.Context, cCtx.String(flagCode.Name)))
				},
			},
			{
				Name:  "verify",
				Usage: "compare a fingerprint with an asset's recorded document hash",
				Flags: []cli.Flag{flagCode, flagHash},
				Action: func(cCtx *cli.Context) error {
					hash, err := interfaces.NewDocumentHashFromHex(cCtx.String(flagHash.Name))
					if err != nil {
						return err
					}
					return printResult(client(cCtx).VerifyHash(cCtx.Context, cCtx.String(flagCode.Name), hash))
				},
			},
			{
				Name:  "verify-document",
				Usage: "check an asset's archived document against the registry",
				Flags: []cli.Flag{flagCode},
				Action: func(cCtx *cli.Context) error {
					return printResult(client(cCtx).VerifyDocument(cCtx.Context, cCtx.String(flagCode.Name)))
				},
			},
			{
				Name:  "proof",
				Usage: "show the latest proof of an asset",
				Flags: []cli.Flag{flagCode},
				Action: func(cCtx *cli.Context) error {
					return printResult(client(cCtx).GetLatestProof(cCtx.Context, cCtx.String(flagCode.Name)))
				},
			},
			{
				Name:  "oracle-value",
				Usage: "verify the latest report of a feed without applying it",
				Flags: []cli.Flag{flagFeed},
				Action: func(cCtx *cli.Context) error {
					return printResult(client(cCtx).GetOracleValue(cCtx.Context, cCtx.String(flagFeed.Name)))
				},
			},
			{
				Name:  "fingerprint",
				Usage: "compute the document hash of a local file",
				Flags: []cli.Flag{flagFile},
				Action: func(cCtx *cli.Context) error {
					file, err := os.Open(cCtx.String(flagFile.Name))
					if err != nil {
						return err
					}
					defer file.Close()

					hash, err := ingestion.FingerprintReader(file)
					if err != nil {
						return err
					}
					fmt.Println(hash.String())
					return nil
				},
			},
			{
				Name:  "fetch-document",
				Usage: "download an archived document and check its fingerprint",
				Flags: []cli.Flag{flagHash, flagOutput},
				Action: func(cCtx *cli.Context) error {
					hash, err := interfaces.NewDocumentHashFromHex(cCtx.String(flagHash.Name))
					if err != nil {
						return err
					}
					document, err := client(cCtx).FetchDocument(cCtx.Context, hash)
					if err != nil {
						return err
					}
					if output := cCtx.String(flagOutput.Name); output != "" {
						return os.WriteFile(output, document, 0o644)
					}
					_, err = os.Stdout.Write(document)
					return err
				},
			},
			{
				Name:  "upload-document",
				Usage: "archive a source document (admin)",
				Flags: []cli.Flag{flagFile},
				Action: func(cCtx *cli.Context) error {
					document, err := os.ReadFile(cCtx.String(flagFile.Name))
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return printResult(c.UploadDocument(cCtx.Context, document))
				},
			},
			{
				Name:  "register",
				Usage: "register an asset from an ingestion payload file (admin)",
				Flags: []cli.Flag{flagFile},
				Action: func(cCtx *cli.Context) error {
					payload, err := readPayload(cCtx.String(flagFile.Name))
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return printResult(c.RegisterAsset(cCtx.Context, payload))
				},
			},
			{
				Name:  "deactivate",
				Usage: "deactivate an asset (admin)",
				Flags: []cli.Flag{flagCode},
				Action: func(cCtx *cli.Context) error {
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return c.Deactivate(cCtx.Context, cCtx.String(flagCode.Name))
				},
			},
			{
				Name:  "submit-proof",
				Usage: "apply the latest verified report of a feed to an asset (admin)",
				Flags: []cli.Flag{flagCode, flagFeed},
				Action: func(cCtx *cli.Context) error {
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return printResult(c.SubmitProof(cCtx.Context, cCtx.String(flagCode.Name), cCtx.String(flagFeed.Name)))
				},
			},
			{
				Name:  "transfer-ownership",
				Usage: "hand the coordinator to a new owner (admin)",
				Flags: []cli.Flag{flagAddress},
				Action: func(cCtx *cli.Context) error {
					address, err := parseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return c.TransferOwnership(cCtx.Context, address)
				},
			},
			{
				Name:  "update-registry",
				Usage: "point the coordinator at another registry contract (admin)",
				Flags: []cli.Flag{flagAddress},
				Action: func(cCtx *cli.Context) error {
					address, err := parseAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					return c.UpdateRegistry(cCtx.Context, address)
				},
			},
			{
				Name:  "publish-report",
				Usage: "sign a feed observation and publish it to the report board",
				Flags: []cli.Flag{
					flagFeed,
					flagValue,
					flagObservedAt,
					flagReporterKey,
				},
				Action: func(cCtx *cli.Context) error {
					report, err := signReport(cCtx)
					if err != nil {
						return err
					}
					if err := client(cCtx).PublishReport(cCtx.Context, report); err != nil {
						return err
					}
					return printJSON(report)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func client(cCtx *cli.Context) *clients.RegistryClient {
	return clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), nil)
}

func adminClient(cCtx *cli.Context) (*clients.RegistryClient, error) {
	hexKey := cCtx.String(flags.AdminKeyFlag.Name)
	if hexKey == "" {
		return nil, errors.New("admin-key is required for admin commands")
	}
	key, err := flags.LoadPrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), key), nil
}

// readPayload decodes and validates an ingestion payload before it is sent.
func readPayload(path string) (*ingestion.Payload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	payload, err := ingestion.DecodePayload(file)
	if err != nil {
		return nil, err
	}
	if _, err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func signReport(cCtx *cli.Context) (*verifier.SignedReport, error) {
	feed, err := api.ParseFeedID(cCtx.String(flagFeed.Name))
	if err != nil {
		return nil, err
	}

	observedAt := cCtx.Int64(flagObservedAt.Name)
	if observedAt == 0 {
		observedAt = time.Now().Unix()
	}

	report := &verifier.SignedReport{
		FeedID:     feed,
		Value:      cCtx.String(flagValue.Name),
		ObservedAt: uint64(observedAt),
	}
	for _, hexKey := range cCtx.StringSlice(flagReporterKey.Name) {
		key, err := flags.LoadPrivateKey(hexKey)
		if err != nil {
			return nil, err
		}
		if err := verifier.NewReportSigner(key).Sign(report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func parseAddress(source string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(source) {
		return ethcommon.Address{}, fmt.Errorf("invalid address %q", source)
	}
	return ethcommon.HexToAddress(source), nil
}

func printResult[T any](result T, err error) error {
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
