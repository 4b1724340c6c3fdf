// Package hier maps in-memory signals onto the hierarchical store: it
// plans chunk shapes, materializes data arrays, and walks the metadata
// trees in both directions. The walk is a single implementation
// parameterized by a Strategy; there are no per-format subclasses.
package hier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/scisig/zspy/encoding"
	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/ndarray"
	"github.com/scisig/zspy/signal"
	"github.com/scisig/zspy/store"
)

// Writer persists one signal into an experiment group.
type Writer struct {
	group *store.Group
	sig   *signal.Signal
	strat *Strategy

	// chunks overrides the planner when non-nil.
	chunks []int
}

// NewWriter prepares a writer targeting an experiment group. chunks
// overrides the automatic chunk plan for the data array when non-nil.
func NewWriter(group *store.Group, sig *signal.Signal, strat *Strategy, chunks []int) *Writer {
	return &Writer{group: group, sig: sig, strat: strat, chunks: chunks}
}

// Write lays out the experiment group: the "data" array, one axis-N
// subgroup per data dimension, and the metadata and original_metadata
// trees. Unsupported metadata leaves are skipped with a log line; the
// caller's signal is never mutated. A failed write may leave partial
// on-disk state behind, this is not transactional.
func (w *Writer) Write() error {
	shape := w.sig.Shape()
	if err := validateAxes(w.sig.Axes, shape); err != nil {
		return err
	}

	var src any
	switch {
	case w.sig.LazyData != nil:
		src = w.sig.LazyData
	case w.sig.Data != nil:
		src = w.sig.Data
	default:
		return fmt.Errorf("%w: signal carries no data buffer", errs.ErrShapeMismatch)
	}

	chunks := w.chunks
	if chunks == nil {
		itemsize := dataItemsize(src)
		chunks = PlanChunks(shape, itemsize, w.sig.SignalAxisIndices())
	}

	if _, err := materializeDataset(w.group, "data", src, chunks, w.strat); err != nil {
		return err
	}

	for _, axis := range w.sig.Axes {
		if err := w.writeAxis(axis); err != nil {
			return err
		}
	}

	if err := w.writeMapping(w.group, "metadata", persistedMetadata(w.sig)); err != nil {
		return err
	}
	if err := w.writeMapping(w.group, "original_metadata", w.sig.OriginalMetadata); err != nil {
		return err
	}

	for key, v := range w.sig.Attributes {
		if err := w.writeLeaf(w.group, key, v); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) writeAxis(axis signal.Axis) error {
	g, err := w.group.RequireGroup(fmt.Sprintf("axis-%d", axis.IndexInArray))
	if err != nil {
		return err
	}

	return g.PutAttrs(map[string]any{
		"name":           axis.Name,
		"offset":         axis.Offset,
		"scale":          axis.Scale,
		"units":          axis.Units,
		"size":           axis.Size,
		"index_in_array": axis.IndexInArray,
		"navigate":       axis.Navigate,
		"is_binned":      axis.IsBinned,
	})
}

// writeMapping recursively persists a nested mapping: nested maps become
// subgroups, everything else a leaf. Keys are written in sorted order so
// repeated saves produce identical trees.
func (w *Writer) writeMapping(parent *store.Group, name string, m map[string]any) error {
	g, err := parent.RequireGroup(name)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if sub, ok := m[key].(map[string]any); ok {
			if err := w.writeMapping(g, key, sub); err != nil {
				return err
			}
			continue
		}
		if err := w.writeLeaf(g, key, m[key]); err != nil {
			return err
		}
	}

	return nil
}

// writeLeaf encodes one metadata leaf. A value outside the codec is an
// explicit, logged skip, not an error; the reloaded tree simply lacks
// the key.
func (w *Writer) writeLeaf(g *store.Group, key string, v any) error {
	enc, err := w.strat.EncodeValue(v)
	if err != nil {
		if errors.Is(err, errs.ErrUnsupportedValue) {
			logrus.WithFields(logrus.Fields{
				"group": g.Path(),
				"key":   key,
				"type":  fmt.Sprintf("%T", v),
			}).Debug("skipping metadata value with no encoding")

			return nil
		}

		return err
	}

	if enc.IsArray() {
		arr, err := materializeDataset(g, key, enc.Array, nil, w.strat)
		if err != nil {
			return err
		}

		return arr.PutAttrs(map[string]any{encoding.KindAttr: string(enc.Kind)})
	}

	return g.SetAttr(key, enc.Value)
}

// validateAxes checks that the axis list covers {0..rank-1} exactly and
// that every axis size matches the data extent it calibrates.
func validateAxes(axes []signal.Axis, shape []int) error {
	rank := len(shape)
	if len(axes) != rank {
		return fmt.Errorf("%w: %d axes for rank %d", errs.ErrAxisMismatch, len(axes), rank)
	}

	seen := make([]bool, rank)
	for _, axis := range axes {
		idx := axis.IndexInArray
		if idx < 0 || idx >= rank {
			return fmt.Errorf("%w: index_in_array %d out of range", errs.ErrAxisMismatch, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: duplicate index_in_array %d", errs.ErrAxisMismatch, idx)
		}
		seen[idx] = true
		if axis.Size != shape[idx] {
			return fmt.Errorf("%w: axis size %d for extent %d at dimension %d",
				errs.ErrAxisMismatch, axis.Size, shape[idx], idx)
		}
	}

	return nil
}

func dataItemsize(src any) int {
	if d, ok := src.(interface{ DType() ndarray.DType }); ok {
		return d.DType().Size()
	}

	return 8
}
