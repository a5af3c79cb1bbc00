package bos_sdk

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nearsocial/bos_sdk_go/pkg/components"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	PolicyExact    = "exact"
	PolicySocialDB = "socialdb"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	Mode          string `env:"BOS_RUNTIME_MODE,default=auto"`
	Network       string `env:"BOS_NETWORK,default=mainnet"`
	RPCURL        string `env:"BOS_RPC_URL"`
	NetworksFile  string `env:"BOS_NETWORKS_FILE"`
	MockSeed      string `env:"BOS_MOCK_SEED"`
	ComponentsDir string `env:"BOS_COMPONENTS_DIR,default=./src"`
	MaxDeposit    string `env:"BOS_MAX_DEPOSIT"`
	DepositPolicy string `env:"BOS_DEPOSIT_POLICY,default=exact"`
	LogLevel      string `env:"BOS_LOG_LEVEL,default=info"`
}

// DefaultConfig returns the configuration used when no variable is set.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeAuto,
		Network:       "mainnet",
		ComponentsDir: components.DefaultRoot,
		DepositPolicy: PolicyExact,
		LogLevel:      "info",
	}
}

// LoadConfig loads envFiles into the process environment without overriding
// variables that are already set, then decodes the BOS_* variables. Listed
// files must exist; with no files, ./.env is loaded when present.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("bos_sdk: load env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("bos_sdk: read environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = defaults.Mode
	}
	c.Network = strings.TrimSpace(c.Network)
	if c.Network == "" {
		c.Network = defaults.Network
	}
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	if strings.TrimSpace(c.ComponentsDir) == "" {
		c.ComponentsDir = defaults.ComponentsDir
	}
	c.DepositPolicy = strings.ToLower(strings.TrimSpace(c.DepositPolicy))
	if c.DepositPolicy == "" {
		c.DepositPolicy = defaults.DepositPolicy
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Policy returns the deposit policy named by DepositPolicy with MaxDeposit
// applied as its ceiling.
func (c Config) Policy() (deposit.Policy, error) {
	var policy deposit.Policy
	switch strings.ToLower(strings.TrimSpace(c.DepositPolicy)) {
	case "", PolicyExact:
		policy = deposit.DefaultPolicy()
	case PolicySocialDB:
		policy = deposit.SocialDBPolicy()
	default:
		return deposit.Policy{}, fmt.Errorf("bos_sdk: unsupported BOS_DEPOSIT_POLICY value %q", c.DepositPolicy)
	}
	ceiling, err := c.Ceiling()
	if err != nil {
		return deposit.Policy{}, err
	}
	policy.Ceiling = ceiling
	return policy, nil
}

// Ceiling parses MaxDeposit. It is nil when no maximum is configured.
func (c Config) Ceiling() (*big.Int, error) {
	raw := strings.TrimSpace(c.MaxDeposit)
	if raw == "" {
		return nil, nil
	}
	v, err := deposit.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: BOS_MAX_DEPOSIT: %w", err)
	}
	return v, nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
