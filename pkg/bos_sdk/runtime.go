package bos_sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nearsocial/bos_sdk_go/internal/httpx"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb/mock"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

// ErrNoSubmitter is returned by Submit when the runtime cannot execute
// calls itself. Prepared calls must then be signed and sent externally.
var ErrNoSubmitter = errors.New("bos_sdk: no transaction submitter configured")

// Runtime bundles the clients a workflow needs for one network.
type Runtime struct {
	Client *socialdb.Client
	// Submitter executes calls. It is nil in HTTP mode unless one is supplied.
	Submitter tx.Submitter
	Engine    *deposit.Engine
	Builder   tx.Builder
	Logger    zerolog.Logger
	Config    Config
	Network   Network
	// Mode is the resolved runtime mode, "http" or "mock".
	Mode string
	// Mock is the in-memory contract in mock mode, nil otherwise.
	Mock *mock.Contract
}

type options struct {
	logger    zerolog.Logger
	submitter tx.Submitter
	networks  Networks
	transport []httpx.Option
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger shared by the runtime, its client and mock contract.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSubmitter executes calls through s instead of the mode's default.
func WithSubmitter(s tx.Submitter) Option {
	return func(o *options) {
		o.submitter = s
	}
}

// WithNetworks replaces the network table read from BOS_NETWORKS_FILE.
func WithNetworks(n Networks) Option {
	return func(o *options) {
		o.networks = n
	}
}

// WithTransport passes options to the JSON-RPC transport in HTTP mode.
func WithTransport(opts ...httpx.Option) Option {
	return func(o *options) {
		o.transport = append(o.transport, opts...)
	}
}

// NewFromEnv loads the configuration from the environment and builds a Runtime.
func NewFromEnv(opts ...Option) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New builds a Runtime for cfg. The network must be present in the network
// table. In auto mode an RPC URL (from BOS_RPC_URL or the network entry)
// selects HTTP; otherwise an in-memory contract seeded from BOS_MOCK_SEED is
// used and also executes submitted calls.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg.normalize()

	networks := o.networks
	if networks == nil {
		var err error
		if networks, err = LoadNetworks(cfg.NetworksFile); err != nil {
			return nil, err
		}
	}
	network, err := networks.Lookup(cfg.Network)
	if err != nil {
		return nil, err
	}
	if cfg.RPCURL != "" {
		network.RPCURL = cfg.RPCURL
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Engine:  deposit.NewEngine(policy),
		Builder: tx.NewBuilder(),
		Logger:  o.logger.With().Str("network", network.Name).Str("contract", network.Contract).Logger(),
		Config:  cfg,
		Network: network,
	}

	switch cfg.Mode {
	case ModeAuto:
		if network.RPCURL != "" {
			err = rt.initHTTP(o)
		} else {
			err = rt.initMock(o)
		}
	case ModeHTTP:
		if network.RPCURL == "" {
			return nil, fmt.Errorf("bos_sdk: HTTP mode requires BOS_RPC_URL or an rpc_url for network %q", network.Name)
		}
		err = rt.initHTTP(o)
	case ModeMock:
		err = rt.initMock(o)
	default:
		return nil, fmt.Errorf("bos_sdk: unsupported BOS_RUNTIME_MODE value %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	if o.submitter != nil {
		rt.Submitter = o.submitter
	}

	rt.Logger.Debug().Str("mode", rt.Mode).Str("rpc_url", network.RPCURL).Msg("runtime ready")
	return rt, nil
}

func (r *Runtime) initHTTP(o options) error {
	client, err := socialdb.New(r.Network.RPCURL, r.Network.Contract,
		socialdb.WithLogger(r.Logger),
		socialdb.WithTransport(o.transport...),
	)
	if err != nil {
		return fmt.Errorf("bos_sdk: init HTTP client: %w", err)
	}
	r.Client = client
	r.Mode = ModeHTTP
	return nil
}

func (r *Runtime) initMock(o options) error {
	contract, err := socialdb.NewMockContract(r.Network.Contract, r.Config.MockSeed, mock.WithLogger(r.Logger))
	if err != nil {
		return fmt.Errorf("bos_sdk: %w", err)
	}
	client, err := socialdb.NewWithBackend(contract, contract.ID(), socialdb.WithLogger(r.Logger))
	if err != nil {
		return fmt.Errorf("bos_sdk: %w", err)
	}
	r.Client = client
	r.Submitter = contract
	r.Mock = contract
	r.Mode = ModeMock
	return nil
}

// CanSubmit reports whether Submit can execute calls.
func (r *Runtime) CanSubmit() bool {
	return r.Submitter != nil
}

// Submit executes call through the runtime's submitter.
func (r *Runtime) Submit(ctx context.Context, call *tx.Call) (*tx.Status, error) {
	if r.Submitter == nil {
		return nil, ErrNoSubmitter
	}
	status, err := tx.Send(ctx, r.Submitter, call)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("submission failed")
		return status, err
	}
	r.Logger.Info().
		Str("method", call.Method()).
		Str("deposit", deposit.FormatNEAR(call.Deposit())).
		Str("tx", status.TxHash).
		Msg("submitted")
	return status, nil
}
