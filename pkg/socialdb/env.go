package socialdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/nearsocial/bos_sdk_go/internal/devseed"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb/mock"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

type envConfig struct {
	Mode     string `env:"BOS_RUNTIME_MODE,default=auto"`
	RPCURL   string `env:"BOS_RPC_URL"`
	Contract string `env:"BOS_SOCIALDB_CONTRACT,default=social.near"`
	MockSeed string `env:"BOS_MOCK_SEED"`
}

// NewFromEnv builds a Client from BOS_* environment variables and returns the
// resolved mode. In auto mode a configured BOS_RPC_URL selects HTTP; otherwise
// an in-memory contract is used, seeded from BOS_MOCK_SEED when set. The mock
// contract is returned as well so callers can submit against it; it is nil in
// HTTP mode.
func NewFromEnv(opts ...Option) (client *Client, contract *mock.Contract, mode string, err error) {
	var cfg envConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, nil, "", fmt.Errorf("socialdb: read environment: %w", err)
	}
	mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Contract == "" {
		cfg.Contract = mock.DefaultContract
	}

	switch mode {
	case "", ModeAuto:
		if cfg.RPCURL != "" {
			return newHTTPFromEnv(cfg, opts)
		}
		return newMockFromEnv(cfg, opts)
	case ModeHTTP:
		if cfg.RPCURL == "" {
			return nil, nil, "", fmt.Errorf("socialdb: HTTP mode requires BOS_RPC_URL")
		}
		return newHTTPFromEnv(cfg, opts)
	case ModeMock:
		return newMockFromEnv(cfg, opts)
	default:
		return nil, nil, "", fmt.Errorf("socialdb: unsupported BOS_RUNTIME_MODE value %q", mode)
	}
}

func newHTTPFromEnv(cfg envConfig, opts []Option) (*Client, *mock.Contract, string, error) {
	client, err := New(cfg.RPCURL, cfg.Contract, opts...)
	if err != nil {
		return nil, nil, "", fmt.Errorf("socialdb: init HTTP client: %w", err)
	}
	return client, nil, ModeHTTP, nil
}

func newMockFromEnv(cfg envConfig, opts []Option) (*Client, *mock.Contract, string, error) {
	contract, err := NewMockContract(cfg.Contract, cfg.MockSeed)
	if err != nil {
		return nil, nil, "", err
	}
	client, err := NewWithBackend(contract, contract.ID(), opts...)
	if err != nil {
		return nil, nil, "", err
	}
	return client, contract, ModeMock, nil
}

// NewMockContract returns an in-memory contract, seeded from seedPath when it
// is not empty.
func NewMockContract(contractID, seedPath string, opts ...mock.Option) (*mock.Contract, error) {
	contract := mock.New(append([]mock.Option{mock.WithContractID(contractID)}, opts...)...)
	if path := strings.TrimSpace(seedPath); path != "" {
		seed, err := devseed.LoadSocialDBSeed(path)
		if err != nil {
			return nil, fmt.Errorf("socialdb: load mock seed: %w", err)
		}
		if err := contract.Seed(seed); err != nil {
			return nil, fmt.Errorf("socialdb: apply mock seed: %w", err)
		}
	}
	return contract, nil
}
