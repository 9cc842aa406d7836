// Package security signs analysis results so consumers can check they were
// produced by this adapter and not modified in transit.
package security

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// ErrTampered is returned when a payload no longer matches its integrity block
var ErrTampered = errors.New("payload does not match integrity data")

// Integrity carries the hashes and Ethereum signature of a payload
type Integrity struct {
	SHA256    string    `json:"sha256"`
	Keccak256 string    `json:"keccak256"`
	Signature string    `json:"signature"`
	Signer    string    `json:"signer"`
	SignedAt  time.Time `json:"signedAt"`
}

// SignedPayload wraps the exact bytes that were hashed and signed
type SignedPayload struct {
	Payload   json.RawMessage `json:"payload"`
	Integrity Integrity       `json:"integrity"`
}

// ReportSigner signs payloads with a secp256k1 key, the same scheme
// Ethereum contracts verify with ecrecover.
type ReportSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewReportSigner creates a signer with a freshly generated key
func NewReportSigner() (*ReportSigner, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	signer := &ReportSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
	logrus.Infof("Report signer initialized with address %s", signer.address.Hex())
	return signer, nil
}

// Address returns the signer's Ethereum address
func (s *ReportSigner) Address() string {
	return s.address.Hex()
}

// Sign marshals payload to JSON and signs the keccak256 hash of those bytes
func (s *ReportSigner) Sign(payload any) (SignedPayload, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return SignedPayload{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	keccakHash := crypto.Keccak256Hash(payloadBytes)
	signature, err := crypto.Sign(keccakHash.Bytes(), s.privateKey)
	if err != nil {
		return SignedPayload{}, fmt.Errorf("failed to sign with Ethereum scheme: %w", err)
	}

	return SignedPayload{
		Payload: payloadBytes,
		Integrity: Integrity{
			SHA256:    fmt.Sprintf("%x", sha256.Sum256(payloadBytes)),
			Keccak256: keccakHash.Hex(),
			Signature: hexutil.Encode(signature),
			Signer:    s.address.Hex(),
			SignedAt:  time.Now().UTC(),
		},
	}, nil
}

// Verify checks the payload hashes and recovers the signing address. It
// fails when the payload was modified or the recovered key is not the
// claimed signer.
func Verify(signed SignedPayload) (common.Address, error) {
	keccakHash := crypto.Keccak256Hash(signed.Payload)
	if keccakHash.Hex() != signed.Integrity.Keccak256 {
		return common.Address{}, fmt.Errorf("%w: keccak256 mismatch", ErrTampered)
	}
	if fmt.Sprintf("%x", sha256.Sum256(signed.Payload)) != signed.Integrity.SHA256 {
		return common.Address{}, fmt.Errorf("%w: sha256 mismatch", ErrTampered)
	}

	signature, err := hexutil.Decode(signed.Integrity.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}

	pub, err := crypto.SigToPub(keccakHash.Bytes(), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !common.IsHexAddress(signed.Integrity.Signer) || recovered != common.HexToAddress(signed.Integrity.Signer) {
		return common.Address{}, fmt.Errorf("%w: signed by %s, claimed %s", ErrTampered, recovered.Hex(), signed.Integrity.Signer)
	}
	return recovered, nil
}
