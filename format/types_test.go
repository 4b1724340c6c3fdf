package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKindValid verifies membership in the closed tag set.
func TestKindValid(t *testing.T) {
	for _, k := range []Kind{
		KindString, KindStringList, KindList, KindTuple,
		KindEmptyList, KindEmptyTuple, KindBytes, KindArray, KindRagged,
	} {
		assert.True(t, k.Valid(), "kind %q", k)
	}

	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("hologram").Valid())
}

// TestCompressorID verifies the stored identifier round trips per type.
func TestCompressorID(t *testing.T) {
	for _, ct := range []CompressionType{CompressionZstd, CompressionS2, CompressionLZ4} {
		assert.Equal(t, ct, ParseCompressorID(ct.CompressorID()))
	}

	assert.Equal(t, "", CompressionNone.CompressorID())
	assert.Equal(t, CompressionNone, ParseCompressorID(""))
	assert.Equal(t, CompressionNone, ParseCompressorID("blosc"))
}
