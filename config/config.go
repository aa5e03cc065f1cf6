package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"proofmarket/native/market"
)

// Config carries the deployment configuration for the settlement daemon. The
// notary fingerprint, queries commitment and program id are fixed at
// deployment and compared against every submitted claim.
type Config struct {
	ListenAddress        string `toml:"ListenAddress"`
	DataDir              string `toml:"DataDir"`
	ChainID              uint64 `toml:"ChainID"`
	ContractAddress      string `toml:"ContractAddress"`
	PaymentToken         string `toml:"PaymentToken"`
	PrincipalToken       string `toml:"PrincipalToken"`
	NotaryKeyFingerprint string `toml:"NotaryKeyFingerprint"`
	QueriesCommitment    string `toml:"QueriesCommitment"`
	ProofProgramID       string `toml:"ProofProgramID"`
	VerifierEndpoint     string `toml:"VerifierEndpoint"`
	Environment          string `toml:"Environment"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if c.ChainID == 0 {
		c.ChainID = 1
	}
	if strings.TrimSpace(c.PaymentToken) == "" {
		c.PaymentToken = "USDM"
	}
	if strings.TrimSpace(c.PrincipalToken) == "" {
		c.PrincipalToken = "PMR"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
}

// Validate checks the hex-encoded deployment constants.
func (c *Config) Validate() error {
	if _, err := decodeHash(c.NotaryKeyFingerprint); err != nil {
		return fmt.Errorf("config: NotaryKeyFingerprint: %w", err)
	}
	if _, err := decodeHash(c.QueriesCommitment); err != nil {
		return fmt.Errorf("config: QueriesCommitment: %w", err)
	}
	if _, err := decodeHash(c.ProofProgramID); err != nil {
		return fmt.Errorf("config: ProofProgramID: %w", err)
	}
	if _, err := decodeAddress(c.ContractAddress); err != nil {
		return fmt.Errorf("config: ContractAddress: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(c.PaymentToken), strings.TrimSpace(c.PrincipalToken)) {
		return fmt.Errorf("config: payment and principal tokens must differ")
	}
	return nil
}

// EngineParams converts the configuration into the settlement engine's
// deployment constants.
func (c *Config) EngineParams() (market.Params, error) {
	notary, err := decodeHash(c.NotaryKeyFingerprint)
	if err != nil {
		return market.Params{}, fmt.Errorf("config: NotaryKeyFingerprint: %w", err)
	}
	queries, err := decodeHash(c.QueriesCommitment)
	if err != nil {
		return market.Params{}, fmt.Errorf("config: QueriesCommitment: %w", err)
	}
	program, err := decodeHash(c.ProofProgramID)
	if err != nil {
		return market.Params{}, fmt.Errorf("config: ProofProgramID: %w", err)
	}
	contract, err := decodeAddress(c.ContractAddress)
	if err != nil {
		return market.Params{}, fmt.Errorf("config: ContractAddress: %w", err)
	}
	return market.Params{
		PaymentToken:         strings.ToUpper(strings.TrimSpace(c.PaymentToken)),
		NotaryKeyFingerprint: notary,
		QueriesCommitment:    queries,
		ProofProgramID:       program,
		ChainID:              c.ChainID,
		ContractAddress:      contract,
	}, nil
}

func decodeHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return out, fmt.Errorf("value required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func decodeAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return out, fmt.Errorf("value required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(decoded) != 20 {
		return out, fmt.Errorf("expected 20 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
