package components

import (
	"context"
	"errors"
	"fmt"
	"path"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Report is the per-component outcome of a download.
type Report struct {
	Account string
	Root    string
	// Written lists the file paths written, in order.
	Written []string
	// Components lists the components whose files were all written.
	Components []string
	Failed     map[string]error
	// NoComponents is set when the account had nothing to download.
	NoComponents bool
}

// Err joins the per-component failures, or returns nil when there were none.
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	names := maps.Keys(r.Failed)
	slices.Sort(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("component %s: %w", name, r.Failed[name]))
	}
	return errors.Join(errs...)
}

func (r *Report) fail(name string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]error)
	}
	r.Failed[name] = err
}

// Materialize writes tree through fsys one component at a time. Each
// component's directory is created first; a failure stops that component only
// and is recorded in the report with the offending path.
func Materialize(ctx context.Context, fsys Filesystem, tree FileTree) *Report {
	report := &Report{}
	if ctx == nil {
		ctx = context.Background()
	}

	var order []string
	byComponent := make(map[string][]File)
	for _, f := range tree {
		if _, seen := byComponent[f.Component]; !seen {
			order = append(order, f.Component)
		}
		byComponent[f.Component] = append(byComponent[f.Component], f)
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			report.fail(name, err)
			continue
		}
		if err := writeComponent(fsys, byComponent[name], report); err != nil {
			report.fail(name, err)
			continue
		}
		report.Components = append(report.Components, name)
	}
	return report
}

func writeComponent(fsys Filesystem, files []File, report *Report) error {
	created := make(map[string]bool)
	for _, f := range files {
		dir := path.Dir(f.Path)
		if dir != "." && !created[dir] {
			if err := fsys.MkdirAll(dir); err != nil {
				return &IOError{Op: "mkdir", Path: dir, Err: err}
			}
			created[dir] = true
		}
		if err := fsys.WriteFile(f.Path, f.Data); err != nil {
			return &IOError{Op: "write", Path: f.Path, Err: err}
		}
		report.Written = append(report.Written, f.Path)
	}
	return nil
}
