package hier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scisig/zspy/encoding"
	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/signal"
	"github.com/scisig/zspy/store"
)

// Reader reconstructs a signal payload from an experiment group.
type Reader struct {
	group *store.Group
	strat *Strategy
}

// NewReader prepares a reader over an experiment group.
func NewReader(group *store.Group, strat *Strategy) *Reader {
	return &Reader{group: group, strat: strat}
}

// Read walks the experiment group and returns the reconstruction payload.
// With lazy set, the data array comes back as a deferred handle and the
// backing store must stay open until the payload is closed; ragged data
// always loads dense. Axis configuration is validated before anything is
// returned. Decode failures inside the metadata trees are isolated per
// key: the offending entry is skipped with a warning, siblings survive.
func (r *Reader) Read(lazy bool) (*signal.Payload, error) {
	arr, err := r.strat.OpenArray(r.group, "data")
	if err != nil {
		return nil, err
	}
	shape := arr.Shape()

	axes, err := r.readAxes(len(shape))
	if err != nil {
		return nil, err
	}

	p := &signal.Payload{Axes: axes}

	switch {
	case arr.DType().IsObject():
		dense, err := arr.Read()
		if err != nil {
			return nil, err
		}
		if rows, ok := dense.Rows(); ok {
			p.Ragged = rows
		} else {
			p.Data = dense
		}
	case lazy:
		p.LazyData = arr.ReadLazy()
	default:
		p.Data, err = arr.Read()
		if err != nil {
			return nil, err
		}
	}

	if p.Metadata, err = r.readMapping("metadata"); err != nil {
		return nil, err
	}
	stripRecordBy(p.Metadata)
	if p.OriginalMetadata, err = r.readMapping("original_metadata"); err != nil {
		return nil, err
	}
	if p.Attributes, err = r.readAttrs(r.group); err != nil {
		return nil, err
	}

	return p, nil
}

// readAxes collects the axis-N subgroups, validates that their
// index_in_array values cover {0..rank-1} exactly, and returns the axis
// list ordered by index_in_array.
func (r *Reader) readAxes(rank int) ([]signal.Axis, error) {
	groups, err := r.group.Groups()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range groups {
		if strings.HasPrefix(name, "axis-") {
			names = append(names, name)
		}
	}
	if len(names) != rank {
		return nil, fmt.Errorf("%w: %d axis groups for rank %d", errs.ErrAxisMismatch, len(names), rank)
	}

	out := make([]signal.Axis, rank)
	seen := make([]bool, rank)
	for _, name := range names {
		g, err := r.strat.OpenGroup(r.group, name)
		if err != nil {
			return nil, err
		}
		attrs, err := g.Attrs()
		if err != nil {
			return nil, err
		}

		idx := intAttr(attrs, "index_in_array", -1)
		if idx < 0 || idx >= rank {
			return nil, fmt.Errorf("%w: index_in_array %d out of range in %s", errs.ErrAxisMismatch, idx, name)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate index_in_array %d", errs.ErrAxisMismatch, idx)
		}
		seen[idx] = true

		out[idx] = signal.Axis{
			Name:         stringAttr(attrs, "name"),
			Offset:       floatAttr(attrs, "offset"),
			Scale:        floatAttr(attrs, "scale"),
			Units:        stringAttr(attrs, "units"),
			Size:         intAttr(attrs, "size", 0),
			IndexInArray: idx,
			Navigate:     boolAttr(attrs, "navigate"),
			IsBinned:     boolAttr(attrs, "is_binned"),
		}
	}

	return out, nil
}

// readMapping loads one metadata tree. An absent tree is an empty map.
func (r *Reader) readMapping(name string) (map[string]any, error) {
	g, err := r.strat.OpenGroup(r.group, name)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return map[string]any{}, nil
		}

		return nil, err
	}

	return r.readGroupTree(g)
}

// readGroupTree reconstructs a nested mapping from a group: attributes
// and array children become values, subgroups recurse. A decode error on
// one entry skips that entry only.
func (r *Reader) readGroupTree(g *store.Group) (map[string]any, error) {
	out, err := r.readAttrs(g)
	if err != nil {
		return nil, err
	}

	arrays, err := g.Arrays()
	if err != nil {
		return nil, err
	}
	for _, name := range arrays {
		value, err := r.readArrayLeaf(g, name)
		if err != nil {
			var de *errs.DecodeError
			if errors.As(err, &de) {
				warnSkip(de)
				continue
			}

			return nil, err
		}
		out[name] = value
	}

	subgroups, err := g.Groups()
	if err != nil {
		return nil, err
	}
	for _, name := range subgroups {
		child, err := r.strat.OpenGroup(g, name)
		if err != nil {
			return nil, err
		}
		sub, err := r.readGroupTree(child)
		if err != nil {
			return nil, err
		}
		out[name] = sub
	}

	return out, nil
}

func (r *Reader) readAttrs(g *store.Group) (map[string]any, error) {
	attrs, err := g.Attrs()
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(attrs))
	for key, raw := range attrs {
		decoded, err := r.strat.DecodeValue(raw, g.Path()+"/"+key)
		if err != nil {
			var de *errs.DecodeError
			if errors.As(err, &de) {
				warnSkip(de)
				continue
			}

			return nil, err
		}
		out[key] = decoded
	}

	return out, nil
}

// readArrayLeaf decodes an array child of a metadata group using the
// kind tag recorded on the node.
func (r *Reader) readArrayLeaf(g *store.Group, name string) (any, error) {
	arr, err := r.strat.OpenArray(g, name)
	if err != nil {
		return nil, err
	}
	attrs, err := arr.Attrs()
	if err != nil {
		return nil, err
	}

	kind, _ := attrs[encoding.KindAttr].(string)
	dense, err := arr.Read()
	if err != nil {
		return nil, err
	}

	return r.strat.DecodeArray(dense, format.Kind(kind), arr.Path())
}

func warnSkip(de *errs.DecodeError) {
	logrus.WithFields(logrus.Fields{
		"path": de.Path,
		"kind": de.Kind,
	}).Warn("skipping metadata entry with unrecognized encoding")
}

func intAttr(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatAttr(attrs map[string]any, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)

	return s
}

func boolAttr(attrs map[string]any, key string) bool {
	b, _ := attrs[key].(bool)

	return b
}
