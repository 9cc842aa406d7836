package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-risk-ea/internal/types"
)

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	// Set log formatter based on environment
	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Set log level based on environment
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// parseJobData extracts the wallet and chain from a job's data object.
// "address" and "chain" are accepted as aliases.
func parseJobData(data map[string]any) (string, int, error) {
	rawWallet, ok := firstPresent(data, "wallet", "address")
	if !ok {
		return "", 0, fmt.Errorf("missing wallet parameter")
	}
	wallet, ok := rawWallet.(string)
	if !ok {
		return "", 0, fmt.Errorf("wallet must be a string")
	}

	rawChain, ok := firstPresent(data, "chainId", "chain")
	if !ok {
		return wallet, types.DefaultChainID, nil
	}

	switch v := rawChain.(type) {
	case float64:
		if v != math.Trunc(v) {
			return "", 0, fmt.Errorf("chainId must be an integer")
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return "", 0, fmt.Errorf("chainId out of range: %g", v)
		}
		return wallet, int(v), nil
	case string:
		id, err := parseChainID(v)
		return wallet, id, err
	default:
		return "", 0, fmt.Errorf("chainId must be a number")
	}
}

// parseChainID parses a chain selector, defaulting when empty
func parseChainID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.DefaultChainID, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("chainId must be an integer: %q", raw)
	}
	return id, nil
}

func firstPresent(data map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
