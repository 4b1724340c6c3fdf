package compress

// ZstdCompressor provides Zstandard compression for stored chunk payloads.
//
// This compressor is designed for scenarios where compression ratio is more
// important than compression speed, making it ideal for:
//   - Archival signal data read back infrequently
//   - Large navigation spaces where storage cost dominates
//   - Network-mounted stores where bandwidth is limited
//
// It is the default compressor for newly written stores.
type ZstdCompressor struct {
	level int
}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

// NewZstdCompressorLevel creates a Zstd compressor for one zstd
// compression level (1..22). Levels at or below zero select the default.
// The pure-Go backend maps levels onto its four speed tiers; decompression
// is level-agnostic either way.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance at the given level
func NewZstdCompressorLevel(level int) ZstdCompressor {
	return ZstdCompressor{level: level}
}
