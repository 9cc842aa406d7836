package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-risk-ea/internal/model"
	"github.com/yourorg/wallet-risk-ea/internal/types"
	"github.com/yourorg/wallet-risk-ea/internal/validation"
)

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

type fakeAnalyzer struct {
	report  model.RiskReport
	err     error
	chainID int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, chainID int) (model.RiskReport, error) {
	f.chainID = chainID
	return f.report, f.err
}

func sampleReport() model.RiskReport {
	return model.RiskReport{
		Wallet:                testWallet,
		AnalyzedAt:            time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		ChainID:               1,
		ChainName:             "Ethereum",
		TotalTokensFound:      2,
		EstimatedPortfolioUSD: 1000,
		OverallRiskScore:      49,
		RiskLevel:             model.RiskMedium,
		TokenRisks: []model.TokenRisk{
			{Symbol: "X", PortfolioPct: 80, LiquidityUSD: 5000, Verified: true, RiskScore: 70, Flags: []string{"Low liquidity: $5,000", "Liquidity not locked"}},
			{Symbol: "Y", PortfolioPct: 20, LiquidityUSD: 1_000_000, Verified: true, LiquidityLocked: true, RiskScore: 0, Flags: []string{}},
		},
		Summary:         "MEDIUM risk portfolio",
		Recommendations: []string{"Consider reducing exposure to X"},
	}
}

func TestRun_HumanOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	analyzer := &fakeAnalyzer{report: sampleReport()}

	code := run([]string{"-wallet", testWallet, "-chain", "137"}, &stdout, &stderr, analyzer)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Equal(t, 137, analyzer.chainID)

	out := stdout.String()
	assert.Contains(t, out, "MEDIUM (49/100)")
	assert.Contains(t, out, "$1000.00")
	assert.Contains(t, out, "MEDIUM risk portfolio")
	assert.Contains(t, out, "TOKEN")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "Low liquidity: $5,000; Liquidity not locked")
	assert.Contains(t, out, "  - Consider reducing exposure to X")
}

func TestRun_JSONOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-wallet", testWallet, "-json"}, &stdout, &stderr, &fakeAnalyzer{report: sampleReport()})

	require.Equal(t, exitOK, code)
	var report model.RiskReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, 49, report.OverallRiskScore)
	assert.Len(t, report.TokenRisks, 2)
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		err      error
		wantCode int
	}{
		{"missing wallet", []string{}, nil, exitInvalid},
		{"unknown flag", []string{"-nope"}, nil, exitInvalid},
		{"invalid address", []string{"-wallet", "0x12"}, fmt.Errorf("%w: 0x12", validation.ErrInvalidAddress), exitInvalid},
		{"unsupported chain", []string{"-wallet", testWallet, "-chain", "10"}, fmt.Errorf("%w: 10", types.ErrUnsupportedChain), exitInvalid},
		{"analysis failure", []string{"-wallet", testWallet}, errors.New("boom"), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := run(tt.args, &stdout, &stderr, &fakeAnalyzer{err: tt.err})

			assert.Equal(t, tt.wantCode, code)
			assert.Empty(t, stdout.String())
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRenderReport_EmptyWallet(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, model.RiskReport{
		Wallet:          testWallet,
		ChainName:       "Ethereum",
		RiskLevel:       model.RiskLow,
		Summary:         "No ERC-20 tokens found",
		Recommendations: []string{"Only a native ETH balance was found"},
	})

	out := buf.String()
	assert.NotContains(t, out, "TOKEN", "no table without tokens")
	assert.Contains(t, out, "LOW (0/100)")
	assert.Contains(t, out, "native ETH balance")
}
