// Package signal defines the domain surface the serialization core
// consumes and produces: a signal's raw data buffer, its axis
// calibrations and its nested metadata trees. Construction of richer
// domain objects (models, markers) stays outside this module; their
// already-serialized dictionary form travels through the metadata trees
// like any other nested mapping.
package signal

import (
	"io"

	"github.com/scisig/zspy/ndarray"
)

// Axis describes the calibration of one data dimension.
type Axis struct {
	Name   string
	Offset float64
	Scale  float64
	Units  string
	Size   int

	// IndexInArray identifies the data dimension this axis calibrates.
	// Across a signal's axes the values must cover {0..rank-1} exactly.
	IndexInArray int

	// Navigate classifies the dimension: true for navigation axes (vary
	// across acquisitions), false for signal axes (vary within one).
	Navigate bool
	IsBinned bool
}

// Signal is one in-memory scientific dataset to persist. Exactly one of
// Data and LazyData is set.
type Signal struct {
	Data     *ndarray.Array
	LazyData ndarray.Lazy

	Axes             []Axis
	Metadata         map[string]any
	OriginalMetadata map[string]any

	// Attributes are simple fields stored directly on the experiment
	// group, outside the metadata trees.
	Attributes map[string]any
}

// Rank returns the data rank.
func (s *Signal) Rank() int {
	if s.LazyData != nil {
		return len(s.LazyData.Shape())
	}
	if s.Data != nil {
		return s.Data.Rank()
	}

	return 0
}

// Shape returns the data shape.
func (s *Signal) Shape() []int {
	if s.LazyData != nil {
		return s.LazyData.Shape()
	}
	if s.Data != nil {
		return s.Data.Shape()
	}

	return nil
}

// SignalAxisIndices returns the array dimensions calibrated by signal
// (non-navigation) axes, in axis order. Nil when no axes are classified.
func (s *Signal) SignalAxisIndices() []int {
	var out []int
	for _, axis := range s.Axes {
		if !axis.Navigate {
			out = append(out, axis.IndexInArray)
		}
	}

	return out
}

// SignalDimension returns the number of signal (non-navigation) axes.
func (s *Signal) SignalDimension() int {
	return len(s.SignalAxisIndices())
}

// Payload is the reconstruction returned by a load: everything needed to
// build the concrete signal object, which happens outside this core.
type Payload struct {
	// Data holds the materialized buffer for an eager load. LazyData
	// holds the deferred handle for a lazy load; the backing store stays
	// open until Close is called.
	Data     *ndarray.Array
	LazyData ndarray.Lazy

	// Ragged holds the row values of a ragged experiment; Data is nil
	// in that case. Ragged reload is always dense.
	Ragged [][]int64

	Axes             []Axis
	Metadata         map[string]any
	OriginalMetadata map[string]any
	Attributes       map[string]any

	closer io.Closer
}

// AttachCloser registers the resource backing a lazy payload.
func (p *Payload) AttachCloser(c io.Closer) {
	p.closer = c
}

// Close releases the backing store of a lazy load. Closing an eager
// payload is a no-op.
func (p *Payload) Close() error {
	if p.LazyData != nil {
		if err := p.LazyData.Close(); err != nil {
			return err
		}
	}
	if p.closer != nil {
		return p.closer.Close()
	}

	return nil
}
