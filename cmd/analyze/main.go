// Command analyze scores a single wallet from the command line using the
// same pipeline as the adapter server.
//
//	analyze -wallet 0x... [-chain 1] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-risk-ea/internal/config"
	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/pipeline"
	"github.com/yourorg/wallet-risk-ea/internal/types"
	"github.com/yourorg/wallet-risk-ea/internal/validation"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

// Analyzer produces a risk report for one wallet
type Analyzer interface {
	Analyze(ctx context.Context, wallet string, chainID int) (model.RiskReport, error)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run parses args, analyzes the wallet and writes the result to stdout.
// A nil analyzer builds the live pipeline from configuration.
func run(args []string, stdout, stderr io.Writer, analyzer Analyzer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	wallet := fs.String("wallet", "", "wallet address to analyze (0x...)")
	chainID := fs.Int("chain", types.DefaultChainID, "chain id: "+chainList())
	asJSON := fs.Bool("json", false, "print the report as JSON")
	verbose := fs.Bool("v", false, "log progress to stderr")

	if err := fs.Parse(args); err != nil {
		return exitInvalid
	}
	if *wallet == "" {
		fmt.Fprintln(stderr, "error: -wallet is required")
		fs.Usage()
		return exitInvalid
	}

	setupLogging(stderr, *verbose)

	cfg := config.Load()
	if analyzer == nil {
		analyzer = pipeline.Build(cfg, nil).Analyzer
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	report, err := analyzer.Analyze(ctx, *wallet, *chainID)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if validation.IsValidationError(err) {
			return exitInvalid
		}
		return exitFailure
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	renderReport(stdout, report)
	return exitOK
}

// setupLogging keeps stdout clean for the report; logs go to stderr and
// only warnings show unless verbose is set. LOG_LEVEL still wins.
func setupLogging(w io.Writer, verbose bool) {
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	level := logrus.WarnLevel
	if verbose {
		level = logrus.DebugLevel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	logrus.SetLevel(level)
}

func chainList() string {
	ids := types.SupportedChainIDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		chain, _ := types.LookupChain(id)
		parts = append(parts, fmt.Sprintf("%d (%s)", id, chain.Name))
	}
	return strings.Join(parts, ", ")
}
