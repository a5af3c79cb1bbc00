package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"

	"github.com/nearsocial/bos_sdk_go/pkg/bos_sdk"
	"github.com/nearsocial/bos_sdk_go/pkg/components"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

const BosVersion = "0.1.0"

const usage = `bos, a SocialDB client.

Reads and writes SocialDB keys and syncs BOS components between an account
and a local directory. Without a way to sign (BOS_RUNTIME_MODE=http) writes
print the reconciled function call as JSON for an external signer.

Usage:
    bos socialdb get <key> [--network=<network>] [--env-file=<path>]
    bos socialdb set <key> (--json=<value> | --text-file=<path>) [--sign-as=<signer>] [--network=<network>] [--env-file=<path>]
    bos components download <account> [--dir=<dir>] [--network=<network>] [--env-file=<path>]
    bos components deploy <account> [--dir=<dir>] [--sign-as=<signer>] [--network=<network>] [--env-file=<path>]
    bos networks [--env-file=<path>]
    bos -h | --help
    bos --version

Options:
    -h --help             Show this screen.
    --version             Show version.
    --network=<network>   Network to use, overrides BOS_NETWORK.
    --env-file=<path>     Load variables from this file first.
    --json=<value>        Value to store, as JSON.
    --text-file=<path>    Store the contents of a text file as a string.
    --sign-as=<signer>    Account that signs the call. Defaults to the key's account.
    --dir=<dir>           Components directory, overrides BOS_COMPONENTS_DIR.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], BosVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "bos: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type command struct {
	opts docopt.Opts
	out  io.Writer
	rt   *bos_sdk.Runtime
	log  zerolog.Logger
}

func run(ctx context.Context, opts docopt.Opts, out io.Writer) error {
	var envFiles []string
	if envFile, _ := opts.String("--env-file"); envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	cfg, err := bos_sdk.LoadConfig(envFiles...)
	if err != nil {
		return err
	}
	if network, _ := opts.String("--network"); network != "" {
		cfg.Network = network
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	if isNetworks, _ := opts.Bool("networks"); isNetworks {
		return listNetworks(cfg, out)
	}

	rt, err := bos_sdk.New(cfg, bos_sdk.WithLogger(logger))
	if err != nil {
		return err
	}
	c := &command{opts: opts, out: out, rt: rt, log: logger}

	isSocialDB, _ := opts.Bool("socialdb")
	isComponents, _ := opts.Bool("components")
	isGet, _ := opts.Bool("get")
	isSet, _ := opts.Bool("set")
	isDownload, _ := opts.Bool("download")
	isDeploy, _ := opts.Bool("deploy")

	switch {
	case isSocialDB && isGet:
		return c.get(ctx)
	case isSocialDB && isSet:
		return c.set(ctx)
	case isComponents && isDownload:
		return c.download(ctx)
	case isComponents && isDeploy:
		return c.deploy(ctx)
	}
	return errors.New("unknown command")
}

func listNetworks(cfg bos_sdk.Config, out io.Writer) error {
	networks, err := bos_sdk.LoadNetworks(cfg.NetworksFile)
	if err != nil {
		return err
	}
	for _, name := range networks.Names() {
		n := networks[name]
		contract := n.Contract
		if contract == "" {
			contract = "-"
		}
		fmt.Fprintf(out, "%-12s %-24s %s\n", name, contract, n.RPCURL)
	}
	return nil
}

func (c *command) get(ctx context.Context) error {
	key, _ := c.opts.String("<key>")
	if strings.HasSuffix(key, document.SubtreeSuffix) {
		if _, err := document.ParseStoreKey(strings.TrimSuffix(key, document.SubtreeSuffix)); err != nil {
			return err
		}
		doc, err := c.rt.Client.Get(ctx, key)
		if err != nil {
			return err
		}
		data, err := doc.MarshalJSON()
		if err != nil {
			return err
		}
		return c.printJSON(data)
	}

	path, err := document.ParseStoreKey(key)
	if err != nil {
		return err
	}
	value, ok, err := c.rt.Client.ReadKey(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Info().Str("key", key).Msg("no value stored")
		return c.printJSON([]byte("null"))
	}
	return c.printJSON(value)
}

func (c *command) set(ctx context.Context) error {
	key, _ := c.opts.String("<key>")
	signer, _ := c.opts.String("--sign-as")

	var value json.RawMessage
	if raw, ok := c.opts["--json"].(string); ok {
		value = json.RawMessage(raw)
	} else {
		textFile, _ := c.opts.String("--text-file")
		data, err := os.ReadFile(textFile)
		if err != nil {
			return err
		}
		if value, err = document.TextLeaf(data); err != nil {
			return fmt.Errorf("%s: %w", textFile, err)
		}
	}

	prepared, err := c.rt.PrepareSet(ctx, bos_sdk.SetRequest{Key: key, Value: value, Signer: signer})
	if err != nil {
		return err
	}
	finalized, err := c.rt.Finalize(ctx, prepared)
	if err != nil {
		return err
	}
	return c.submit(ctx, prepared.Signer, finalized.Call)
}

func (c *command) download(ctx context.Context) error {
	account, _ := c.opts.String("<account>")
	root := c.dir()

	report, err := c.rt.DownloadComponents(ctx, account, components.OSFS{Root: root})
	if err != nil {
		return err
	}
	if report.NoComponents {
		fmt.Fprintf(c.out, "%s has no components\n", account)
		return nil
	}
	for _, name := range report.Written {
		fmt.Fprintln(c.out, components.OSFS{Root: root}.Resolve(name))
	}
	return report.Err()
}

func (c *command) deploy(ctx context.Context) error {
	account, _ := c.opts.String("<account>")
	signer, _ := c.opts.String("--sign-as")
	root := c.dir()

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	result, err := c.rt.Deploy(ctx, account, components.OSFS{Root: root}.FS(), signer)
	if err != nil && !errors.Is(err, bos_sdk.ErrNoSubmitter) {
		return err
	}
	if result.Call == nil {
		fmt.Fprintf(c.out, "%s: components are up to date\n", account)
		return nil
	}
	for _, name := range result.Prepared.Changed {
		fmt.Fprintf(c.out, "changed %s\n", name)
	}
	return c.submitted(result.Prepared.Signer, result.Call, result.Status)
}

// submit sends call when the runtime can sign, otherwise it prints the call.
func (c *command) submit(ctx context.Context, signer string, call *tx.Call) error {
	if !c.rt.CanSubmit() {
		return c.submitted(signer, call, nil)
	}
	status, err := c.rt.Submit(ctx, call)
	if err != nil {
		return err
	}
	return c.submitted(signer, call, status)
}

type unsignedCall struct {
	SignerID string   `json:"signer_id"`
	Network  string   `json:"network"`
	Call     *tx.Call `json:"call"`
}

func (c *command) submitted(signer string, call *tx.Call, status *tx.Status) error {
	if status != nil {
		fmt.Fprintf(c.out, "submitted %s.%s with %s (tx %s)\n",
			call.Receiver(), call.Method(), deposit.FormatNEAR(call.Deposit()), status.TxHash)
		return nil
	}
	c.log.Info().Str("signer", signer).Msg("no signer configured, printing the call")
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(unsignedCall{SignerID: signer, Network: c.rt.Network.Name, Call: call}); err != nil {
		return err
	}
	return c.printJSON(buf.Bytes())
}

func (c *command) dir() string {
	if dir, _ := c.opts.String("--dir"); dir != "" {
		return dir
	}
	return c.rt.Config.ComponentsDir
}

func (c *command) printJSON(data []byte) error {
	pretty := &bytes.Buffer{}
	if err := json.Indent(pretty, bytes.TrimSpace(data), "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')
	_, err := c.out.Write(pretty.Bytes())
	return err
}
