package zspy

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scisig/zspy/errs"
	"github.com/scisig/zspy/format"
	"github.com/scisig/zspy/ndarray"
	"github.com/scisig/zspy/signal"
	"github.com/scisig/zspy/store"
)

func testSignal(title string) *signal.Signal {
	data := make([]float64, 8*32)
	for i := range data {
		data[i] = float64(i) * 0.125
	}

	return &signal.Signal{
		Data: ndarray.MustFromSlice([]int{8, 32}, data),
		Axes: []signal.Axis{
			{Name: "x", Offset: 0.5, Scale: 2, Units: "um", Size: 8, IndexInArray: 0, Navigate: true},
			{Name: "E", Offset: -5, Scale: 0.1, Units: "eV", Size: 32, IndexInArray: 1},
		},
		Metadata: map[string]any{
			"General": map[string]any{
				"title": title,
				"date":  "2024-05-17",
			},
			"Acquisition": map[string]any{
				"exposure": 0.25,
				"frames":   int64(64),
			},
		},
		OriginalMetadata: map[string]any{
			"vendor": map[string]any{"model": "µSpec 3000"},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.zspy")
	sig := testSignal("round trip")

	require.NoError(t, Save(path, sig))

	p, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, p.Data)
	assert.Equal(t, sig.Data.Data(), p.Data.Data())
	assert.Equal(t, sig.Axes, p.Axes)

	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "round trip", general["title"])
	assert.Equal(t, "2024-05-17", general["date"])

	acq := p.Metadata["Acquisition"].(map[string]any)
	assert.Equal(t, 0.25, acq["exposure"])
	assert.Equal(t, int64(64), acq["frames"])

	vendor := p.OriginalMetadata["vendor"].(map[string]any)
	assert.Equal(t, "µSpec 3000", vendor["model"])
}

func TestSave_RefusesExistingPathWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.zspy")

	require.NoError(t, Save(path, testSignal("first")))

	err := Save(path, testSignal("second"))
	require.ErrorIs(t, err, errs.ErrPathExists)
}

func TestSave_OverwriteReplacesNotMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ow.zspy")

	first := testSignal("same title")
	first.Metadata["stale_key"] = "old"
	require.NoError(t, Save(path, first))

	second := testSignal("same title")
	second.Metadata["fresh_key"] = "new"
	require.NoError(t, Save(path, second, WithOverwrite()))

	p, err := Load(path)
	require.NoError(t, err)

	_, present := p.Metadata["stale_key"]
	assert.False(t, present)
	assert.Equal(t, "new", p.Metadata["fresh_key"])
}

func TestSave_RootAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attrs.zspy")
	require.NoError(t, Save(path, testSignal("attrs")))

	st, err := store.Open(path, true)
	require.NoError(t, err)
	defer st.Close()

	attrs, err := st.Root().Attrs()
	require.NoError(t, err)
	assert.Equal(t, FormatName, attrs["file_format"])
	assert.Equal(t, FormatVersion, attrs["file_format_version"])

	exps, err := st.Root().OpenGroup("Experiments")
	require.NoError(t, err)
	names, err := exps.Groups()
	require.NoError(t, err)
	assert.Equal(t, []string{"attrs"}, names)
}

func TestSave_TitleSanitization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.zspy")
	require.NoError(t, Save(path, testSignal("eels/map/01")))

	st, err := store.Open(path, true)
	require.NoError(t, err)
	defer st.Close()

	exps, err := st.Root().OpenGroup("Experiments")
	require.NoError(t, err)
	names, err := exps.Groups()
	require.NoError(t, err)
	assert.Equal(t, []string{"eels-map-01"}, names)
}

func TestSave_UntitledSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untitled.zspy")
	sig := testSignal("")
	require.NoError(t, Save(path, sig))

	st, err := store.Open(path, true)
	require.NoError(t, err)
	defer st.Close()

	exps, err := st.Root().OpenGroup("Experiments")
	require.NoError(t, err)
	names, err := exps.Groups()
	require.NoError(t, err)
	assert.Equal(t, []string{"__unnamed__"}, names)
}

func TestSaveLoad_ExplicitChunksLazyReload(t *testing.T) {
	// A 3-D reshape of an all-ones 5-D buffer, saved with an explicit
	// (5,2,2) chunk shape, must reload lazily with exactly that chunking.
	ones := make([]float64, 5*4*4)
	for i := range ones {
		ones[i] = 1
	}
	sig := &signal.Signal{
		Data: ndarray.MustFromSlice([]int{5, 4, 4}, ones),
		Axes: []signal.Axis{
			{Name: "a", Scale: 1, Size: 5, IndexInArray: 0, Navigate: true},
			{Name: "b", Scale: 1, Size: 4, IndexInArray: 1},
			{Name: "c", Scale: 1, Size: 4, IndexInArray: 2},
		},
		Metadata: map[string]any{"General": map[string]any{"title": "ones"}},
	}

	path := filepath.Join(t.TempDir(), "chunked.zspy")
	require.NoError(t, Save(path, sig, WithChunks([]int{5, 2, 2})))

	p, err := Load(path, WithLazy())
	require.NoError(t, err)
	defer p.Close()

	require.NotNil(t, p.LazyData)
	assert.Equal(t, []int{5, 2, 2}, p.LazyData.Chunks())

	dense, err := p.LazyData.Compute()
	require.NoError(t, err)
	assert.Equal(t, ones, dense.Data())
}

func TestSaveLoad_RaggedPreservesRows(t *testing.T) {
	rows := [][]int64{{10, 20, 30}, {40}}
	sig := &signal.Signal{
		Data: ndarray.NewRagged(rows),
		Axes: []signal.Axis{
			{Name: "i", Scale: 1, Size: 2, IndexInArray: 0, Navigate: true},
		},
		Metadata: map[string]any{"General": map[string]any{"title": "ragged"}},
	}

	path := filepath.Join(t.TempDir(), "ragged.zspy")
	require.NoError(t, Save(path, sig))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rows, p.Ragged)
	assert.Nil(t, p.Data)
}

func TestSaveLoad_UnsupportedMetadataValueIsDropped(t *testing.T) {
	type marker struct{ x, y float64 }

	sig := testSignal("skips")
	sig.Metadata["marker"] = marker{1, 2}

	path := filepath.Join(t.TempDir(), "skips.zspy")
	require.NoError(t, Save(path, sig))

	p, err := Load(path)
	require.NoError(t, err)

	_, present := p.Metadata["marker"]
	assert.False(t, present)
	// Siblings written after the skipped key survive untouched.
	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "skips", general["title"])
}

func TestSaveLoad_NonFiniteMetadataValueIsDropped(t *testing.T) {
	sig := testSignal("non-finite")
	sig.Metadata["bad"] = math.NaN()
	sig.Metadata["worse"] = math.Inf(1)

	path := filepath.Join(t.TempDir(), "nan.zspy")
	require.NoError(t, Save(path, sig))

	p, err := Load(path)
	require.NoError(t, err)

	_, present := p.Metadata["bad"]
	assert.False(t, present)
	_, present = p.Metadata["worse"]
	assert.False(t, present)
	// Sibling keys survive the skips intact.
	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "non-finite", general["title"])
	acq := p.Metadata["Acquisition"].(map[string]any)
	assert.Equal(t, 0.25, acq["exposure"])
}

func TestSaveLoad_SignalAttributes(t *testing.T) {
	sig := testSignal("carrier")
	sig.Attributes = map[string]any{"package": "zspy", "package_version": "1.0"}

	path := filepath.Join(t.TempDir(), "attrs_rt.zspy")
	require.NoError(t, Save(path, sig))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "zspy", p.Attributes["package"])
	assert.Equal(t, "1.0", p.Attributes["package_version"])
}

func TestLoad_ReadWriteMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.zspy")
	require.NoError(t, Save(path, testSignal("mode")))

	// The default open is read-only: a handle opened that way refuses
	// writes outright.
	st, err := store.Open(path, true)
	require.NoError(t, err)
	require.ErrorIs(t, st.Root().SetAttr("note", "x"), errs.ErrReadOnly)
	require.NoError(t, st.Close())

	// A writable open permits them.
	st, err = store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, st.Root().SetAttr("note", "x"))
	require.NoError(t, st.Close())

	p, err := Load(path, WithReadWrite())
	require.NoError(t, err)
	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "mode", general["title"])
}

func TestSaveLoad_CompressionOptions(t *testing.T) {
	for _, comp := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(comp.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "comp.zspy")
			sig := testSignal("compressed")

			require.NoError(t, Save(path, sig, WithCompression(comp, 1)))

			p, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sig.Data.Data(), p.Data.Data())
		})
	}
}

func TestLoad_SelectsExperimentByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.zspy")
	require.NoError(t, Save(path, testSignal("alpha")))

	p, err := Load(path, WithExperiment("alpha"))
	require.NoError(t, err)
	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "alpha", general["title"])

	_, err = Load(path, WithExperiment("missing"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestWithChunks_RejectsNonPositiveExtent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zspy")

	err := Save(path, testSignal("bad"), WithChunks([]int{0, 2}))
	require.ErrorIs(t, err, errs.ErrInvalidChunks)
	// The invalid option fails before anything touches the path.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewerVersion(t *testing.T) {
	assert.True(t, newerVersion("1.1", "1.0"))
	assert.True(t, newerVersion("2.0", "1.9"))
	assert.True(t, newerVersion("1.0.1", "1.0"))
	assert.False(t, newerVersion("1.0", "1.0"))
	assert.False(t, newerVersion("0.9", "1.0"))
}

func TestLoad_WarnsOnNewerVersionButStillLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newer.zspy")
	require.NoError(t, Save(path, testSignal("newer")))

	st, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, st.Root().SetAttr("file_format_version", "99.0"))
	require.NoError(t, st.Close())

	p, err := Load(path)
	require.NoError(t, err)
	general := p.Metadata["General"].(map[string]any)
	assert.Equal(t, "newer", general["title"])
}
