package bos_sdk

import (
	"context"
	"errors"

	"github.com/nearsocial/bos_sdk_go/pkg/components"
)

// DownloadComponents fetches <account>/widget/** and writes every component
// through fsys. An account without components yields a report with
// NoComponents set and writes nothing. Per-component failures, including
// records that cannot be decoded, are collected in the report; the returned
// error is reserved for failures that stop the whole download.
func (r *Runtime) DownloadComponents(ctx context.Context, account string, fsys components.Filesystem) (*components.Report, error) {
	log := r.Logger.With().Str("account", account).Logger()

	record, err := r.Client.Account(ctx, account, components.WidgetKey)
	if err != nil {
		return nil, err
	}
	root := rootOf(fsys)
	if record == nil {
		log.Info().Msg("account has no components")
		return &components.Report{Account: account, Root: root, NoComponents: true}, nil
	}

	failed := make(map[string]error)
	flat, err := components.FromAccount(record)
	collect(failed, err)
	if len(flat) == 0 && len(failed) == 0 {
		log.Info().Msg("account has no components")
		return &components.Report{Account: account, Root: root, NoComponents: true}, nil
	}
	tree, err := components.Decode(flat)
	collect(failed, err)

	report := components.Materialize(ctx, fsys, tree)
	report.Account = account
	report.Root = root
	for name, err := range failed {
		if report.Failed == nil {
			report.Failed = make(map[string]error)
		}
		report.Failed[name] = err
	}

	for name, err := range report.Failed {
		log.Warn().Err(err).Str("component", name).Msg("component not written")
	}
	log.Info().
		Int("components", len(report.Components)).
		Int("files", len(report.Written)).
		Int("failed", len(report.Failed)).
		Msg("downloaded components")
	return report, nil
}

func collect(into map[string]error, err error) {
	var decodeErr *components.DecodeError
	if errors.As(err, &decodeErr) {
		for name, e := range decodeErr.Failed {
			into[name] = e
		}
	}
}

func rootOf(fsys components.Filesystem) string {
	switch v := fsys.(type) {
	case components.OSFS:
		return v.Resolve(".")
	case *components.OSFS:
		return v.Resolve(".")
	}
	return ""
}
