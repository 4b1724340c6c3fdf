// Package compress provides compression and decompression codecs for stored
// chunk payloads.
//
// Compression is applied per chunk, after the chunk's elements have been
// serialized to bytes. The compressor in use is recorded in the array's
// metadata document so readers can pick the matching codec without any
// out-of-band configuration.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): chunk bytes are stored as-is. Use for
//     incompressible data or when CPU is the bottleneck.
//   - Zstd (format.CompressionZstd): best ratio, moderate speed. The default
//     for newly written stores.
//   - S2 (format.CompressionS2): balanced speed and ratio.
//   - LZ4 (format.CompressionLZ4): fastest decompression, moderate ratio.
//     Good for read-heavy lazy loading.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use. Encoders and
// decoders are pooled internally so repeated chunk operations do not
// allocate after warmup.
package compress
