package document

import (
	"fmt"
	"strings"
)

const (
	dottedSeparator = "."
	storeSeparator  = "/"

	// SubtreeSuffix is appended to a store key to query the whole subtree below it.
	SubtreeSuffix = "/**"
)

// Path is an ordered list of non-empty key segments.
type Path []string

// ParsePath splits a dotted key path such as "a.b.widget".
func ParsePath(s string) (Path, error) {
	return parse(s, dottedSeparator)
}

// ParseStoreKey splits an account-scoped contract key such as
// "alice.near/profile/name". Segments may contain dots.
func ParseStoreKey(s string) (Path, error) {
	return parse(s, storeSeparator)
}

func parse(s, sep string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty key path", ErrInvalidKeyPath)
	}
	p := Path(strings.Split(s, sep))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the path has at least one segment and that no segment
// is empty, contains a wildcard or contains the store separator.
func (p Path) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty key path", ErrInvalidKeyPath)
	}
	for i, seg := range p {
		switch {
		case seg == "":
			return fmt.Errorf("%w: empty segment %d in %q", ErrInvalidKeyPath, i, strings.Join(p, storeSeparator))
		case strings.Contains(seg, "*"):
			return fmt.Errorf("%w: wildcard segment %q is only valid in queries", ErrInvalidKeyPath, seg)
		case strings.Contains(seg, storeSeparator):
			return fmt.Errorf("%w: segment %q contains %q", ErrInvalidKeyPath, seg, storeSeparator)
		}
	}
	return nil
}

// String renders the path in dotted form.
func (p Path) String() string {
	return strings.Join(p, dottedSeparator)
}

// StoreKey renders the path in the contract's slash-separated form.
func (p Path) StoreKey() string {
	return strings.Join(p, storeSeparator)
}

// Subtree renders the read query matching everything below the path.
func (p Path) Subtree() string {
	return p.StoreKey() + SubtreeSuffix
}

// Account returns the first segment, the account scope of a store key.
func (p Path) Account() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Append returns a new path with segs added. The receiver is not modified.
func (p Path) Append(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}
