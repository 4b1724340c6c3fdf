// Package zspy persists multi-dimensional scientific signal data to a
// chunked, hierarchical directory store and restores it losslessly.
//
// A signal is a raw n-d data buffer (dense, deferred or ragged) plus axis
// calibrations and two nested metadata trees. Save lays the signal out as
// a tree of groups and chunked arrays; Load walks the tree back into a
// reconstruction payload.
//
// # Basic Usage
//
// Saving a signal:
//
//	import "github.com/scisig/zspy"
//
//	sig := &signal.Signal{
//	    Data: ndarray.MustFromSlice([]int{16, 1024}, samples),
//	    Axes: []signal.Axis{
//	        {Name: "y", Scale: 1, Size: 16, IndexInArray: 0, Navigate: true},
//	        {Name: "E", Scale: 0.2, Units: "eV", Size: 1024, IndexInArray: 1},
//	    },
//	    Metadata: map[string]any{
//	        "General": map[string]any{"title": "eels map"},
//	    },
//	}
//	err := zspy.Save("map.zspy", sig, zspy.WithOverwrite())
//
// Loading it back:
//
//	payload, err := zspy.Load("map.zspy")
//
// A lazy load defers reading the data bytes; the store stays open until
// the payload is closed:
//
//	payload, err := zspy.Load("map.zspy", zspy.WithLazy())
//	defer payload.Close()
//	arr, err := payload.LazyData.Compute()
//
// Chunk shapes are planned automatically from the signal/navigation axis
// split, targeting chunks on the order of 100MB; WithChunks overrides the
// plan. Chunks are compressed with Zstd level 1 unless WithCompression
// says otherwise.
package zspy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/hier"
	"github.com/scisig/zspy/internal/options"
	"github.com/scisig/zspy/signal"
	"github.com/scisig/zspy/store"
)

const (
	// FormatName tags every store written by this package, stored in the
	// root file_format attribute.
	FormatName = "ZSpy"

	// FormatVersion is the writer revision, monotonically non-decreasing.
	// A store written by a newer revision loads best-effort with a
	// warning.
	FormatVersion = "1.0"

	experimentsGroup = "Experiments"
	unnamedTitle     = "__unnamed__"
)

type saveConfig struct {
	compression format.CompressionType
	level       int
	chunks      []int
	overwrite   bool
}

type loadConfig struct {
	lazy       bool
	readOnly   bool
	experiment string
}

// SaveOption configures Save.
type SaveOption = options.Option[*saveConfig]

// LoadOption configures Load.
type LoadOption = options.Option[*loadConfig]

// WithCompression selects the chunk compressor and level for the saved
// arrays. The default is Zstd level 1.
func WithCompression(comp format.CompressionType, level int) SaveOption {
	return options.NoError(func(cfg *saveConfig) {
		cfg.compression = comp
		cfg.level = level
	})
}

// WithChunks overrides the planned chunk shape of the data array. Extents
// must be positive and match the data rank.
func WithChunks(chunks []int) SaveOption {
	return options.New(func(cfg *saveConfig) error {
		for _, c := range chunks {
			if c <= 0 {
				return fmt.Errorf("%w: extent %d", errs.ErrInvalidChunks, c)
			}
		}
		cfg.chunks = chunks

		return nil
	})
}

// WithOverwrite destroys prior contents at the target path. Without it,
// saving over an existing path is refused.
func WithOverwrite() SaveOption {
	return options.NoError(func(cfg *saveConfig) {
		cfg.overwrite = true
	})
}

// WithLazy defers reading the data array; the returned payload holds the
// store open until closed.
func WithLazy() LoadOption {
	return options.NoError(func(cfg *loadConfig) {
		cfg.lazy = true
	})
}

// WithReadWrite opens the store writable instead of read-only.
func WithReadWrite() LoadOption {
	return options.NoError(func(cfg *loadConfig) {
		cfg.readOnly = false
	})
}

// WithExperiment selects a named experiment group. By default Load picks
// the first experiment in lexical order.
func WithExperiment(name string) LoadOption {
	return options.NoError(func(cfg *loadConfig) {
		cfg.experiment = name
	})
}

// Save persists one signal to a fresh store at path. The tree is created
// from scratch on every save; prior contents are destroyed when
// WithOverwrite is given and refused otherwise.
func Save(path string, sig *signal.Signal, opts ...SaveOption) error {
	cfg := &saveConfig{compression: format.CompressionZstd, level: 1}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	st, err := store.Create(path, cfg.overwrite)
	if err != nil {
		return err
	}
	defer st.Close()

	root := st.Root()
	if err := root.PutAttrs(map[string]any{
		"file_format":         FormatName,
		"file_format_version": FormatVersion,
	}); err != nil {
		return err
	}

	exps, err := root.RequireGroup(experimentsGroup)
	if err != nil {
		return err
	}
	expGroup, err := exps.RequireGroup(experimentTitle(sig))
	if err != nil {
		return err
	}

	strat := hier.DefaultStrategy(cfg.compression, cfg.level)

	return hier.NewWriter(expGroup, sig, strat, cfg.chunks).Write()
}

// Load reconstructs a signal payload from a store at path. An eager load
// releases the store before returning; a lazy load hands ownership to the
// payload, which must be closed.
func Load(path string, opts ...LoadOption) (*signal.Payload, error) {
	cfg := &loadConfig{readOnly: true}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	st, err := store.Open(path, cfg.readOnly)
	if err != nil {
		return nil, err
	}

	payload, err := load(st, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.lazy {
		payload.AttachCloser(st)
	} else if err := st.Close(); err != nil {
		return nil, err
	}

	return payload, nil
}

func load(st *store.Store, cfg *loadConfig) (*signal.Payload, error) {
	root := st.Root()
	attrs, err := root.Attrs()
	if err != nil {
		return nil, err
	}
	if stored, ok := attrs["file_format_version"].(string); ok && newerVersion(stored, FormatVersion) {
		logrus.WithFields(logrus.Fields{
			"stored":    stored,
			"supported": FormatVersion,
		}).Warn("store was written by a newer format revision; loading best-effort")
	}

	exps, err := root.OpenGroup(experimentsGroup)
	if err != nil {
		return nil, err
	}

	name := cfg.experiment
	if name == "" {
		names, err := exps.Groups()
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: store holds no experiments", errs.ErrNotFound)
		}
		sort.Strings(names)
		name = names[0]
	}

	expGroup, err := exps.OpenGroup(name)
	if err != nil {
		return nil, err
	}

	strat := hier.DefaultStrategy(format.CompressionZstd, 1)

	return hier.NewReader(expGroup, strat).Read(cfg.lazy)
}

// experimentTitle derives the experiment group name from the signal's
// General.title metadata. Untitled signals save under a fixed
// placeholder; slashes would nest groups, so they become dashes.
func experimentTitle(sig *signal.Signal) string {
	title := ""
	if general, ok := sig.Metadata["General"].(map[string]any); ok {
		title, _ = general["title"].(string)
	}
	if title == "" {
		return unnamedTitle
	}

	return strings.ReplaceAll(title, "/", "-")
}

// newerVersion reports whether stored is a strictly newer dotted version
// than supported. Unparseable segments compare lexically.
func newerVersion(stored, supported string) bool {
	a := strings.Split(stored, ".")
	b := strings.Split(supported, ".")

	for i := 0; i < len(a) && i < len(b); i++ {
		ai, aerr := strconv.Atoi(a[i])
		bi, berr := strconv.Atoi(b[i])
		if aerr == nil && berr == nil {
			if ai != bi {
				return ai > bi
			}
			continue
		}
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}

	return len(a) > len(b)
}
