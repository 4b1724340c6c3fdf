// Package store implements the directory-backed hierarchical array store
// the writer and reader operate on.
//
// A store is a tree of groups (directories tagged with a .zgroup document)
// and chunked arrays (directories tagged with a .zarray document plus one
// file per chunk, named by dot-separated chunk indices). Both groups and
// arrays carry a .zattrs JSON attribute document. The on-disk layout is
// Zarr-v2 flavored so a tree remains inspectable with standard tooling.
//
// One writer at a time may mutate a store; a completed tree supports any
// number of concurrent readers.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
)

// Store is an open directory-backed store rooted at a filesystem path.
type Store struct {
	root     string
	readOnly bool
	closed   bool
}

// Create initializes a fresh store at path. If the path already exists it
// is refused unless overwrite is set, in which case prior contents are
// destroyed first; a re-created store never merges with stale state.
func Create(path string, overwrite bool) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s", errs.ErrPathExists, path)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}

	s := &Store{root: path}
	if err := writeJSONFile(filepath.Join(path, groupMetaFile), groupMeta{StoreFormat: storeFormatVersion}); err != nil {
		return nil, err
	}

	return s, nil
}

// Open opens an existing store.
func Open(path string, readOnly bool) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
	}
	if _, err := os.Stat(filepath.Join(path, groupMetaFile)); err != nil {
		return nil, fmt.Errorf("%w: %s is not a store root", errs.ErrNotGroup, path)
	}

	return &Store{root: path, readOnly: readOnly}, nil
}

// Close releases the store handle. Lazy arrays backed by this store stop
// working once it is closed.
func (s *Store) Close() error {
	s.closed = true
	return nil
}

// Path returns the store's root path.
func (s *Store) Path() string {
	return s.root
}

// Root returns the root group.
func (s *Store) Root() *Group {
	return &Group{store: s, path: ""}
}

func (s *Store) dirFor(nodePath string) string {
	if nodePath == "" {
		return s.root
	}

	return filepath.Join(s.root, filepath.FromSlash(nodePath))
}

func (s *Store) check(forWrite bool) error {
	if s.closed {
		return errs.ErrClosed
	}
	if forWrite && s.readOnly {
		return fmt.Errorf("%w: %s", errs.ErrReadOnly, s.root)
	}

	return nil
}

// Group is a named container of subgroups, arrays and attributes.
type Group struct {
	store *Store
	path  string // slash-separated path relative to the store root
}

// Name returns the last path component, or "/" for the root group.
func (g *Group) Name() string {
	if g.path == "" {
		return "/"
	}
	parts := strings.Split(g.path, "/")

	return parts[len(parts)-1]
}

// Path returns the group's slash-separated path relative to the store root.
func (g *Group) Path() string {
	return g.path
}

func (g *Group) childPath(name string) string {
	if g.path == "" {
		return name
	}

	return g.path + "/" + name
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid node name %q", name)
	}

	return nil
}

// CreateGroup creates a child group. Creating an existing group is an error.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.store.check(true); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	childPath := g.childPath(name)
	dir := g.store.dirFor(childPath)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: group %s", errs.ErrPathExists, childPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating group %s: %w", childPath, err)
	}
	if err := writeJSONFile(filepath.Join(dir, groupMetaFile), groupMeta{StoreFormat: storeFormatVersion}); err != nil {
		return nil, err
	}

	return &Group{store: g.store, path: childPath}, nil
}

// RequireGroup opens a child group, creating it when absent.
func (g *Group) RequireGroup(name string) (*Group, error) {
	child, err := g.OpenGroup(name)
	if err == nil {
		return child, nil
	}

	return g.CreateGroup(name)
}

// OpenGroup opens a child group. The name may be a slash-separated
// relative path.
func (g *Group) OpenGroup(name string) (*Group, error) {
	if err := g.store.check(false); err != nil {
		return nil, err
	}

	childPath := g.childPath(strings.Trim(name, "/"))
	dir := g.store.dirFor(childPath)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: group %s", errs.ErrNotFound, childPath)
	}
	if _, err := os.Stat(filepath.Join(dir, groupMetaFile)); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotGroup, childPath)
	}

	return &Group{store: g.store, path: childPath}, nil
}

// Groups returns the names of all child groups, sorted by the filesystem.
func (g *Group) Groups() ([]string, error) {
	return g.list(groupMetaFile)
}

// Arrays returns the names of all child arrays.
func (g *Group) Arrays() ([]string, error) {
	return g.list(arrayMetaFile)
}

func (g *Group) list(metaFile string) ([]string, error) {
	if err := g.store.check(false); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(g.store.dirFor(g.path))
	if err != nil {
		return nil, fmt.Errorf("listing group %s: %w", g.path, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		marker := filepath.Join(g.store.dirFor(g.childPath(entry.Name())), metaFile)
		if _, err := os.Stat(marker); err == nil {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

// HasChild reports whether a child node of any kind exists.
func (g *Group) HasChild(name string) bool {
	_, err := os.Stat(g.store.dirFor(g.childPath(name)))
	return err == nil
}

// Delete removes a child node and everything beneath it.
func (g *Group) Delete(name string) error {
	if err := g.store.check(true); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	return os.RemoveAll(g.store.dirFor(g.childPath(name)))
}

// Attrs loads the group's attribute document.
func (g *Group) Attrs() (map[string]any, error) {
	if err := g.store.check(false); err != nil {
		return nil, err
	}

	return readAttrsFile(filepath.Join(g.store.dirFor(g.path), attrsFile))
}

// PutAttrs merges attrs into the group's attribute document.
func (g *Group) PutAttrs(attrs map[string]any) error {
	if err := g.store.check(true); err != nil {
		return err
	}

	path := filepath.Join(g.store.dirFor(g.path), attrsFile)
	current, err := readAttrsFile(path)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		current[k] = v
	}

	return writeAttrsFile(path, current)
}

// SetAttr sets a single attribute.
func (g *Group) SetAttr(key string, value any) error {
	return g.PutAttrs(map[string]any{key: value})
}

// CreateArray creates a child array with the given shape, chunk shape and
// compression. Variable-length dtypes are stored as a single chunk, so
// their chunk shape is forced to the full array shape.
func (g *Group) CreateArray(name string, shape, chunks []int, dtype ndarray.DType, comp format.CompressionType, level int) (*Array, error) {
	if err := g.store.check(true); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	if dtype.IsObject() || chunks == nil {
		chunks = shape
	}
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("%w: chunk rank %d for shape rank %d", errs.ErrInvalidChunks, len(chunks), len(shape))
	}
	for i, c := range chunks {
		if c <= 0 || c > shape[i] {
			return nil, fmt.Errorf("%w: chunk extent %d for dim size %d", errs.ErrInvalidChunks, c, shape[i])
		}
	}

	childPath := g.childPath(name)
	dir := g.store.dirFor(childPath)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: array %s", errs.ErrPathExists, childPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating array %s: %w", childPath, err)
	}

	meta := newArrayMeta(cloneInts(shape), cloneInts(chunks), dtype, comp, level)
	if err := writeJSONFile(filepath.Join(dir, arrayMetaFile), meta); err != nil {
		return nil, err
	}

	return &Array{store: g.store, path: childPath, meta: meta, dt: dtype}, nil
}

// OpenArray opens a child array. The name may be a slash-separated
// relative path.
func (g *Group) OpenArray(name string) (*Array, error) {
	if err := g.store.check(false); err != nil {
		return nil, err
	}

	childPath := g.childPath(strings.Trim(name, "/"))
	dir := g.store.dirFor(childPath)

	var meta arrayMeta
	if err := readJSONFile(filepath.Join(dir, arrayMetaFile), &meta); err != nil {
		if _, statErr := os.Stat(dir); statErr == nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrNotArray, childPath)
		}

		return nil, fmt.Errorf("%w: array %s", errs.ErrNotFound, childPath)
	}

	dt, err := meta.dtype()
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", childPath, err)
	}

	return &Array{store: g.store, path: childPath, meta: &meta, dt: dt}, nil
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)

	return out
}
