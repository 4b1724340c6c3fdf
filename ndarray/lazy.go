package ndarray

// Lazy is a deferred-computation array handle. No element bytes are read
// until a region is requested or the whole array is computed.
//
// A Lazy handle may keep its backing store open; callers release it with
// Close once the data is no longer needed.
type Lazy interface {
	// Shape returns the full array shape.
	Shape() []int

	// DType returns the element type.
	DType() DType

	// Chunks returns the intrinsic chunk shape of the backing storage.
	Chunks() []int

	// ReadRegion materializes the rectangular region starting at offset
	// with the given size.
	ReadRegion(offset, size []int) (*Array, error)

	// Compute materializes the whole array into memory.
	Compute() (*Array, error)

	// Close releases the backing store handle. The Lazy handle must not
	// be used afterwards.
	Close() error
}
