package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `
ListenAddress = ":9000"
DataDir = "/var/lib/proofmarket"
ChainID = 1337
ContractAddress = "0xcacacacacacacacacacacacacacacacacacacaca"
PaymentToken = "usdm"
PrincipalToken = "PMR"
NotaryKeyFingerprint = "0x1111111111111111111111111111111111111111111111111111111111111111"
QueriesCommitment = "0x2222222222222222222222222222222222222222222222222222222222222222"
ProofProgramID = "0x3333333333333333333333333333333333333333333333333333333333333333"
VerifierEndpoint = "http://localhost:7777"
Environment = "prod"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, "/var/lib/proofmarket", cfg.DataDir)
	require.Equal(t, uint64(1337), cfg.ChainID)
	require.Equal(t, "prod", cfg.Environment)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ContractAddress = "0xcacacacacacacacacacacacacacacacacacacaca"
NotaryKeyFingerprint = "0x1111111111111111111111111111111111111111111111111111111111111111"
QueriesCommitment = "0x2222222222222222222222222222222222222222222222222222222222222222"
ProofProgramID = "0x3333333333333333333333333333333333333333333333333333333333333333"
`))
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Equal(t, "USDM", cfg.PaymentToken)
	require.Equal(t, "PMR", cfg.PrincipalToken)
	require.Equal(t, "dev", cfg.Environment)
}

func TestLoadRejectsShortFingerprint(t *testing.T) {
	_, err := Load(writeConfig(t, `
ContractAddress = "0xcacacacacacacacacacacacacacacacacacacaca"
NotaryKeyFingerprint = "0x1111"
QueriesCommitment = "0x2222222222222222222222222222222222222222222222222222222222222222"
ProofProgramID = "0x3333333333333333333333333333333333333333333333333333333333333333"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "NotaryKeyFingerprint")
}

func TestLoadRejectsMatchingTokens(t *testing.T) {
	_, err := Load(writeConfig(t, `
ContractAddress = "0xcacacacacacacacacacacacacacacacacacacaca"
PaymentToken = "pmr"
PrincipalToken = "PMR"
NotaryKeyFingerprint = "0x1111111111111111111111111111111111111111111111111111111111111111"
QueriesCommitment = "0x2222222222222222222222222222222222222222222222222222222222222222"
ProofProgramID = "0x3333333333333333333333333333333333333333333333333333333333333333"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "must differ")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestEngineParams(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	params, err := cfg.EngineParams()
	require.NoError(t, err)
	require.Equal(t, "USDM", params.PaymentToken)
	require.Equal(t, uint64(1337), params.ChainID)
	require.Equal(t, byte(0x11), params.NotaryKeyFingerprint[0])
	require.Equal(t, byte(0x22), params.QueriesCommitment[31])
	require.Equal(t, byte(0x33), params.ProofProgramID[15])
	require.Equal(t, byte(0xca), params.ContractAddress[0])
}
