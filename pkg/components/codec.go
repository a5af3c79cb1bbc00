package components

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	codeExt     = ".jsx"
	metadataExt = ".metadata.json"
)

// File is a single file of a decoded component.
type File struct {
	// Path is slash separated and relative to the output root.
	Path      string
	Component string
	Data      []byte
}

// FileTree is the set of files for a batch of components, sorted by path.
type FileTree []File

// Paths lists the file paths in order.
func (t FileTree) Paths() []string {
	out := make([]string, 0, len(t))
	for _, f := range t {
		out = append(out, f.Path)
	}
	return out
}

// Lookup returns the file at p.
func (t FileTree) Lookup(p string) (File, bool) {
	for _, f := range t {
		if f.Path == p {
			return f, true
		}
	}
	return File{}, false
}

// FilePaths returns the code and metadata paths for a dotted component name.
func FilePaths(name string) (code, metadata string, err error) {
	segs := strings.Split(name, ".")
	for _, seg := range segs {
		switch {
		case seg == "":
			return "", "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidName, name)
		case strings.ContainsAny(seg, `/\`):
			return "", "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
		}
	}
	base := strings.Join(segs, "/")
	return base + codeExt, base + metadataExt, nil
}

// Decode lays out components as files. Every component gets <stem>.jsx with
// its code; <stem>.metadata.json is written only when metadata is present and
// holds the metadata indented by two spaces, keys in their stored order.
// Components with unusable names are reported in a *DecodeError.
func Decode(flat map[string]Component) (FileTree, error) {
	names := maps.Keys(flat)
	slices.Sort(names)

	tree := make(FileTree, 0, len(flat))
	failures := &DecodeError{}
	for _, name := range names {
		c := flat[name]
		codePath, metaPath, err := FilePaths(name)
		if err != nil {
			failures.add(name, err)
			continue
		}
		tree = append(tree, File{Path: codePath, Component: name, Data: []byte(c.Code)})
		if !c.HasMetadata() {
			continue
		}
		pretty := &bytes.Buffer{}
		if err := json.Indent(pretty, bytes.TrimSpace(c.Metadata), "", "  "); err != nil {
			tree = tree[:len(tree)-1]
			failures.add(name, fmt.Errorf("%w: %s metadata: %v", ErrInvalidRecord, name, err))
			continue
		}
		tree = append(tree, File{Path: metaPath, Component: name, Data: pretty.Bytes()})
	}
	slices.SortStableFunc(tree, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return tree, failures.orNil()
}

// Encode walks fsys for .jsx files and rebuilds the flat component map:
// a/b/widget.jsx becomes "a.b.widget", with metadata read from a sibling
// widget.metadata.json when one exists. Hidden files and directories are
// skipped.
func Encode(fsys fs.FS) (map[string]Component, error) {
	out := make(map[string]Component)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Op: "walk", Path: p, Err: err}
		}
		if p != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(p, codeExt) {
			return nil
		}
		c, err := readComponent(fsys, p)
		if err != nil {
			return err
		}
		out[c.Name] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readComponent(fsys fs.FS, codePath string) (Component, error) {
	base := strings.TrimSuffix(codePath, codeExt)
	segs := strings.Split(base, "/")
	for _, seg := range segs {
		if seg == "" || strings.Contains(seg, ".") {
			return Component{}, fmt.Errorf("%w: %s does not map to a dotted name", ErrInvalidName, codePath)
		}
	}
	name := strings.Join(segs, ".")

	code, err := fs.ReadFile(fsys, codePath)
	if err != nil {
		return Component{}, &IOError{Op: "read", Path: codePath, Err: err}
	}
	c := Component{Name: name, Code: string(code)}

	metaPath := path.Join(path.Dir(codePath), path.Base(base)+metadataExt)
	meta, err := fs.ReadFile(fsys, metaPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, nil
	case err != nil:
		return Component{}, &IOError{Op: "read", Path: metaPath, Err: err}
	}
	compacted := &bytes.Buffer{}
	if err := json.Compact(compacted, meta); err != nil {
		return Component{}, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, metaPath, err)
	}
	c.Metadata = compacted.Bytes()
	return c, nil
}
