package main

import (
	"bytes"
	"context"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nearsocial/bos_sdk_go/internal/sandbox"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb/mock"
)

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, name := range []string{"BOS_RUNTIME_MODE", "BOS_NETWORK", "BOS_RPC_URL", "BOS_NETWORKS_FILE", "BOS_MOCK_SEED", "BOS_COMPONENTS_DIR", "BOS_MAX_DEPOSIT", "BOS_DEPOSIT_POLICY"} {
		t.Setenv(name, values[name])
	}
	t.Setenv("BOS_LOG_LEVEL", "disabled")
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
	opts, err := parser.ParseArgs(usage, args, BosVersion)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	err = run(context.Background(), opts, out)
	return out.String(), err
}

func TestGetMissingKey(t *testing.T) {
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "mock"})
	out, err := runArgs(t, "socialdb", "get", "alice.near/profile/name")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)

	_, err = runArgs(t, "socialdb", "get", "alice.near//name")
	assert.Error(t, err)
}

func TestGetSeededSubtree(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"accounts":[{"id":"alice.near","balance":"1","data":{"profile":{"name":"Alice"}}}]}`), 0o644))
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "mock", "BOS_MOCK_SEED": seed})

	out, err := runArgs(t, "socialdb", "get", "alice.near/profile/**")
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice.near":{"profile":{"name":"Alice"}}}`, out)
}

func TestSetSubmitsInMockMode(t *testing.T) {
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "mock"})
	out, err := runArgs(t, "socialdb", "set", "alice.near/profile/name", `--json="Alice"`)
	require.NoError(t, err)
	assert.Contains(t, out, "submitted social.near.set")

	text := filepath.Join(t.TempDir(), "about.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello\n<world>"), 0o644))
	out, err = runArgs(t, "socialdb", "set", "alice.near/profile/about", "--text-file="+text)
	require.NoError(t, err)
	assert.Contains(t, out, "submitted")
}

func TestSetEmptyJSONIsInvalidValue(t *testing.T) {
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "mock"})
	_, err := runArgs(t, "socialdb", "set", "alice.near/profile/name", "--json=")
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrInvalidValue)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}

func TestSetPrintsCallWithoutSigner(t *testing.T) {
	contract := mock.New(mock.WithPrice(big.NewInt(1)))
	srv := httptest.NewServer(sandbox.NewHandler(contract, zerolog.Nop()))
	defer srv.Close()
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "http", "BOS_RPC_URL": srv.URL})

	out, err := runArgs(t, "socialdb", "set", "alice.near/profile/name", `--json="<b>Alice</b>"`, "--sign-as=admin.near")
	require.NoError(t, err)
	printed := gjson.Parse(out)
	assert.Equal(t, "admin.near", printed.Get("signer_id").String())
	assert.Equal(t, "mainnet", printed.Get("network").String())
	assert.Equal(t, "social.near", printed.Get("call.receiver_id").String())
	assert.Equal(t, "set", printed.Get("call.method_name").String())
	assert.Equal(t, "14", printed.Get("call.deposit").String())
	assert.Equal(t, "<b>Alice</b>", printed.Get(`call.args.data.alice\.near.profile.name`).String())
	assert.Empty(t, contract.Calls())
}

func TestComponentsDeployAndDownload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app", "Main.jsx"), []byte("<Main/>"), 0o644))
	setEnv(t, map[string]string{"BOS_RUNTIME_MODE": "mock", "BOS_COMPONENTS_DIR": src})

	out, err := runArgs(t, "components", "deploy", "alice.near")
	require.NoError(t, err)
	assert.Contains(t, out, "changed app.Main")
	assert.Contains(t, out, "submitted")

	// every invocation starts a fresh in-memory contract
	out, err = runArgs(t, "components", "download", "alice.near", "--dir="+filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, "alice.near has no components\n", out)

	_, err = runArgs(t, "components", "deploy", "alice.near", "--dir="+filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestNetworksCommand(t *testing.T) {
	setEnv(t, nil)
	out, err := runArgs(t, "networks")
	require.NoError(t, err)
	assert.Contains(t, out, "mainnet")
	assert.Contains(t, out, "v1.social08.testnet")

	_, err = runArgs(t, "socialdb", "get", "alice.near/profile", "--network=devnet")
	assert.Error(t, err)
}
