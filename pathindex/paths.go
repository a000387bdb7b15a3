package pathindex

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/vcslog/codec"
)

// Path is a relative path below one of the index roots.
type Path struct {
	Root         string
	RelativePath string
}

func (p Path) String() string {
	if p.RelativePath == "" {
		return p.Root
	}
	return strings.TrimSuffix(p.Root, "/") + "/" + p.RelativePath
}

// Roots is the sorted, duplicate-free root set of an index. A root is
// stored as its position in this order, so the set must not change over
// the lifetime of the storage.
type Roots struct {
	list  []string
	index map[string]int32
}

// NewRoots sorts and deduplicates roots.
func NewRoots(roots ...string) Roots {
	list := slices.Clone(roots)
	slices.Sort(list)
	list = slices.Compact(list)

	index := make(map[string]int32, len(list))
	for i, r := range list {
		index[r] = int32(i)
	}
	return Roots{list: list, index: index}
}

// List returns the roots in storage order.
func (r Roots) List() []string { return slices.Clone(r.list) }

// Len returns the number of roots.
func (r Roots) Len() int { return len(r.list) }

// Index returns the storage position of root.
func (r Roots) Index(root string) (int32, bool) {
	i, ok := r.index[root]
	return i, ok
}

// Root returns the root stored at position i.
func (r Roots) Root(i int32) (string, bool) {
	if i < 0 || int(i) >= len(r.list) {
		return "", false
	}
	return r.list[i], true
}

// Equal reports whether both sets hold the same roots.
func (r Roots) Equal(other Roots) bool { return slices.Equal(r.list, other.list) }

// PathCodec encodes a Path as its root's int32 position followed by the
// relative path.
func (r Roots) PathCodec() codec.Codec[Path] { return pathCodec{roots: r} }

type pathCodec struct {
	roots Roots
}

func (c pathCodec) Write(w *codec.Writer, p Path) error {
	i, ok := c.roots.Index(p.Root)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoot, p.Root)
	}
	w.WriteInt32(i)
	w.WriteUTF(p.RelativePath)
	return nil
}

func (c pathCodec) Read(r *codec.Reader) (Path, error) {
	i, err := r.ReadInt32()
	if err != nil {
		return Path{}, err
	}
	root, ok := c.roots.Root(i)
	if !ok {
		return Path{}, fmt.Errorf("%w: index %d, roots %v", ErrUnknownRoot, i, c.roots.list)
	}
	rel, err := r.ReadUTF()
	if err != nil {
		return Path{}, err
	}
	return Path{Root: root, RelativePath: rel}, nil
}
