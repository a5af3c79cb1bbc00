package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"

	"github.com/nearsocial/bos_sdk_go/internal/sandbox"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb/mock"
)

const SandboxVersion = "0.1.0"

const usage = `socialdb-sandbox, a local SocialDB JSON-RPC endpoint.

Serves the view calls used by bos (get, storage_balance_of and the storage
price) from an in-memory contract.

Usage:
    socialdb-sandbox [--addr=<addr>] [--contract=<id>] [--seed=<path>] [--latency=<duration>] [--fail=<rule>]
    socialdb-sandbox -h | --help
    socialdb-sandbox --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --addr=<addr>          Listen address [default: :3030].
    --contract=<id>        Contract account id [default: social.near].
    --seed=<path>          JSON or YAML seed with accounts, balances and data.
    --latency=<duration>   Artificial latency per request, e.g. 150ms.
    --fail=<rule>          Failure injection, rate=<float>,code=<httpStatus>.`

type failConfig struct {
	rate float64
	code int
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], SandboxVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	addr, _ := opts.String("--addr")
	contractID, _ := opts.String("--contract")
	seed, _ := opts.String("--seed")
	latencyRaw, _ := opts.String("--latency")
	failRaw, _ := opts.String("--fail")

	var latency time.Duration
	if latencyRaw != "" {
		if latency, err = time.ParseDuration(latencyRaw); err != nil {
			logger.Fatal().Err(err).Msg("parse latency flag")
		}
	}
	failCfg, err := parseFailConfig(failRaw)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse fail flag")
	}

	contract, err := socialdb.NewMockContract(contractID, seed, mock.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("init contract")
	}

	mux := http.NewServeMux()
	mux.Handle("/", withMiddleware(latency, failCfg, sandbox.NewHandler(contract, logger)))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", addr).Str("contract", contract.ID()).Msg("socialdb-sandbox listening")
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export BOS_RUNTIME_MODE=http")
	fmt.Printf("export BOS_RPC_URL=http://%s\n", host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func withMiddleware(delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v is outside [0, 1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
