package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// WorldIDProof is the zero-knowledge proof payload submitted with a claim.
// Validated at the boundary instead of being passed through as a loose map.
type WorldIDProof struct {
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	Proof             string `json:"proof"`
	VerificationLevel string `json:"verification_level"`
}

// WorldIDVerifier verifies a proof against an external verifier. Implemented
// over HTTP in production and stubbed in tests.
type WorldIDVerifier interface {
	VerifyProof(ctx context.Context, proof WorldIDProof) error
}

// WorldIDService verifies proofs against the Worldcoin developer API.
type WorldIDService struct {
	AppID      string
	Action     string
	VerifyURL  string
	HTTPClient *http.Client
}

func NewWorldIDService() *WorldIDService {
	appID := os.Getenv("WORLDID_APP_ID")
	verifyURL := os.Getenv("WORLDID_VERIFY_URL")
	if verifyURL == "" && appID != "" {
		verifyURL = "https://developer.worldcoin.org/api/v2/verify/" + appID
	}
	return &WorldIDService{
		AppID:     appID,
		Action:    os.Getenv("WORLDID_ACTION"),
		VerifyURL: verifyURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifyProof submits the proof to the verify endpoint. A nil return means the
// proof is valid; any failure (network, non-200, verifier rejection) comes
// back as an error.
func (s *WorldIDService) VerifyProof(ctx context.Context, proof WorldIDProof) error {
	if proof.NullifierHash == "" {
		return fmt.Errorf("invalid WorldID proof: missing nullifier hash")
	}

	level := proof.VerificationLevel
	if level == "" {
		level = "orb"
	}

	payload := map[string]string{
		"merkle_root":        proof.MerkleRoot,
		"nullifier_hash":     proof.NullifierHash,
		"proof":              proof.Proof,
		"verification_level": level,
		"action":             s.Action,
		"signal":             "",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode verify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error verifying proof: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("verification request failed: %d: %s", resp.StatusCode, string(detail))
	}

	var result struct {
		Success bool   `json:"success"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode verify response: %w", err)
	}
	if !result.Success {
		if result.Detail == "" {
			result.Detail = "proof verification failed"
		}
		return fmt.Errorf("WorldID verification failed: %s", result.Detail)
	}

	return nil
}

// HashNullifier derives the stored identity key from a proof nullifier.
// One-way and deterministic: the same nullifier always maps to the same key,
// and the raw nullifier is never persisted.
func HashNullifier(nullifierHash string) string {
	sum := sha256.Sum256([]byte(nullifierHash))
	return hex.EncodeToString(sum[:])
}
