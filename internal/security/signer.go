// Package security provides cryptographic signing of refresh results so
// downstream consumers can verify payload integrity.
package security

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// SignedPayload wraps a JSON payload with its signature and the signing key.
type SignedPayload struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
	PublicKey string          `json:"publicKey"`
	SignedAt  int64           `json:"signedAt"`
}

// Signer signs payloads with an ECDSA key generated at startup.
type Signer struct {
	privateKey   *ecdsa.PrivateKey
	publicKeyHex string
}

// NewSigner generates a fresh key pair.
func NewSigner() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	publicKeyHex := hex.EncodeToString(crypto.FromECDSAPub(&privateKey.PublicKey))
	logrus.Infof("Result signer initialized with public key %s...", publicKeyHex[:16])

	return &Signer{
		privateKey:   privateKey,
		publicKeyHex: publicKeyHex,
	}, nil
}

// PublicKey returns the hex-encoded public key consumers verify against.
func (s *Signer) PublicKey() string {
	return s.publicKeyHex
}

// Sign serializes the payload, hashes it with keccak256 and signs the digest.
func (s *Signer) Sign(payload interface{}) (*SignedPayload, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	digest := crypto.Keccak256(raw)
	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &SignedPayload{
		Payload:   raw,
		Signature: hex.EncodeToString(signature),
		PublicKey: s.publicKeyHex,
		SignedAt:  time.Now().Unix(),
	}, nil
}

// Verify checks a signed payload against its embedded public key.
func Verify(sp *SignedPayload) (bool, error) {
	publicKey, err := hex.DecodeString(sp.PublicKey)
	if err != nil {
		return false, fmt.Errorf("invalid public key encoding: %w", err)
	}

	signature, err := hex.DecodeString(sp.Signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(signature) < 64 {
		return false, fmt.Errorf("signature too short: %d bytes", len(signature))
	}

	digest := crypto.Keccak256(sp.Payload)
	// Drop the recovery byte; VerifySignature expects a 64-byte signature.
	return crypto.VerifySignature(publicKey, digest, signature[:64]), nil
}
