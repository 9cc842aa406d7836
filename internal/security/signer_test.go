package security

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-risk-ea/internal/model"
)

func sampleReport() model.RiskReport {
	return model.RiskReport{
		Wallet:           "0x1234567890abcdef1234567890abcdef12345678",
		ChainID:          1,
		ChainName:        "Ethereum",
		OverallRiskScore: 49,
		RiskLevel:        model.RiskMedium,
		TokenRisks:       []model.TokenRisk{},
		Recommendations:  []string{},
	}
}

func TestReportSigner_SignAndVerify(t *testing.T) {
	signer, err := NewReportSigner()
	require.NoError(t, err)

	signed, err := signer.Sign(sampleReport())
	require.NoError(t, err)

	assert.Equal(t, signer.Address(), signed.Integrity.Signer)
	assert.Len(t, signed.Integrity.Signature, 2+65*2, "0x-prefixed 65-byte signature")

	var decoded model.RiskReport
	require.NoError(t, json.Unmarshal(signed.Payload, &decoded))
	assert.Equal(t, 49, decoded.OverallRiskScore)

	addr, err := Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr.Hex())
}

func TestVerify_SurvivesJSONRoundTrip(t *testing.T) {
	signer, err := NewReportSigner()
	require.NoError(t, err)
	signed, err := signer.Sign(sampleReport())
	require.NoError(t, err)

	data, err := json.Marshal(signed)
	require.NoError(t, err)
	var received SignedPayload
	require.NoError(t, json.Unmarshal(data, &received))

	_, err = Verify(received)
	assert.NoError(t, err)
}

func TestVerify_DetectsTampering(t *testing.T) {
	signer, err := NewReportSigner()
	require.NoError(t, err)
	other, err := NewReportSigner()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*SignedPayload)
	}{
		{"modified payload", func(s *SignedPayload) {
			s.Payload = []byte(`{"overallRiskScore":0}`)
		}},
		{"claimed signer swapped", func(s *SignedPayload) {
			s.Integrity.Signer = other.Address()
		}},
		{"sha256 swapped", func(s *SignedPayload) {
			s.Integrity.SHA256 = "00"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := signer.Sign(sampleReport())
			require.NoError(t, err)
			tt.mutate(&signed)

			_, err = Verify(signed)
			assert.ErrorIs(t, err, ErrTampered)
		})
	}
}

func TestVerify_MalformedSignature(t *testing.T) {
	signer, err := NewReportSigner()
	require.NoError(t, err)
	signed, err := signer.Sign(sampleReport())
	require.NoError(t, err)

	signed.Integrity.Signature = "0x1234"
	_, err = Verify(signed)
	assert.ErrorContains(t, err, "invalid signature length")

	signed.Integrity.Signature = "not-hex"
	_, err = Verify(signed)
	assert.ErrorContains(t, err, "failed to decode signature")
}
