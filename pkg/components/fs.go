package components

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultRoot is where components are downloaded when no directory is given.
const DefaultRoot = "./src"

// Filesystem is the write side used to materialize components. Paths are
// slash separated and relative to the implementation's root.
type Filesystem interface {
	MkdirAll(dir string) error
	WriteFile(name string, data []byte) error
}

// OSFS writes below Root on the local disk. Writes create or truncate.
type OSFS struct {
	Root string
}

func (o OSFS) root() string {
	if strings.TrimSpace(o.Root) == "" {
		return DefaultRoot
	}
	return o.Root
}

// Resolve maps a tree path to its location on disk.
func (o OSFS) Resolve(name string) string {
	return filepath.Join(o.root(), filepath.FromSlash(name))
}

func (o OSFS) MkdirAll(dir string) error {
	return os.MkdirAll(o.Resolve(dir), 0o755)
}

func (o OSFS) WriteFile(name string, data []byte) error {
	return os.WriteFile(o.Resolve(name), data, 0o644)
}

// FS exposes the root for reading, as used by Encode.
func (o OSFS) FS() fs.FS {
	return os.DirFS(o.root())
}

// MemFS is an in-memory Filesystem for tests and dry runs. Like the OS, it
// refuses to write a file whose parent directory was never created.
type MemFS struct {
	mu     sync.RWMutex
	dirs   map[string]struct{}
	files  map[string][]byte
	faults map[string]error
}

// NewMemFS returns an empty filesystem.
func NewMemFS() *MemFS {
	return &MemFS{
		dirs:   map[string]struct{}{".": {}},
		files:  make(map[string][]byte),
		faults: make(map[string]error),
	}
}

// FailOn makes every operation touching p return err.
func (m *MemFS) FailOn(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[clean(p)] = err
}

func (m *MemFS) MkdirAll(dir string) error {
	dir = clean(dir)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[dir]; err != nil {
		return &fs.PathError{Op: "mkdir", Path: dir, Err: err}
	}
	for d := dir; d != "." && d != "/"; d = path.Dir(d) {
		if _, isFile := m.files[d]; isFile {
			return &fs.PathError{Op: "mkdir", Path: d, Err: fs.ErrExist}
		}
		m.dirs[d] = struct{}{}
	}
	return nil
}

func (m *MemFS) WriteFile(name string, data []byte) error {
	name = clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[name]; err != nil {
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}
	if _, ok := m.dirs[path.Dir(name)]; !ok {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrNotExist}
	}
	if _, isDir := m.dirs[name]; isDir {
		return &fs.PathError{Op: "write", Path: name, Err: fmt.Errorf("is a directory")}
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// ReadFile returns a copy of the file contents.
func (m *MemFS) ReadFile(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[clean(name)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Files returns the written file paths, sorted.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := maps.Keys(m.files)
	slices.Sort(out)
	return out
}

// Dirs returns the created directories, sorted, excluding the root.
func (m *MemFS) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		if d != "." {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

func clean(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "" {
		return "."
	}
	return p
}
