package compression

import (
	"bytes"
	"crypto/sha512"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, alg Algorithm) *Codec {
	t.Helper()
	codec, err := NewCodec(alg)
	require.NoError(t, err)
	t.Cleanup(codec.Close)
	return codec
}

// incompressible returns deterministic high-entropy bytes.
func incompressible(n int) []byte {
	out := make([]byte, 0, n+64)
	seed := []byte("glyphweave-test-seed")
	for len(out) < n {
		sum := sha512.Sum512(append(seed, byte(len(out))))
		out = append(out, sum[:]...)
	}
	return out[:n]
}

func TestCodecRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello glyphweave"),
		[]byte(strings.Repeat("compressible text pattern ", 200)),
		incompressible(2048),
	}

	for _, alg := range []Algorithm{AlgLZMA, AlgZstd} {
		codec := newTestCodec(t, alg)
		for i, data := range inputs {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)
			require.NotEmpty(t, compressed, "input %d: missing algorithm tag", i)
			assert.Equal(t, byte(alg), compressed[0])

			out, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, out), "input %d did not round-trip with %q", i, string(alg))
		}
	}
}

func TestDecompressDispatchesOnTag(t *testing.T) {
	// A codec configured for one algorithm must still decode payloads
	// written with the other.
	lzma := newTestCodec(t, AlgLZMA)
	zstd := newTestCodec(t, AlgZstd)

	data := []byte(strings.Repeat("cross-algorithm payload ", 30))

	fromLzma, err := lzma.Compress(data)
	require.NoError(t, err)
	out, err := zstd.Decompress(fromLzma)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	fromZstd, err := zstd.Compress(data)
	require.NoError(t, err)
	out, err = lzma.Decompress(fromZstd)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDecompressRejectsBadInput(t *testing.T) {
	codec := newTestCodec(t, AlgLZMA)

	_, err := codec.Decompress(nil)
	assert.Error(t, err)

	_, err = codec.Decompress([]byte{0xff, 0x01, 0x02})
	assert.Error(t, err)
}

func TestCompressionShrinksRepetitiveText(t *testing.T) {
	data := []byte(strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 200))

	for _, alg := range []Algorithm{AlgLZMA, AlgZstd} {
		codec := newTestCodec(t, alg)
		compressed, err := codec.Compress(data)
		require.NoError(t, err)
		assert.Less(t, len(compressed), len(data), "%q did not shrink repetitive text", string(alg))
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, name := range []string{"", "lzma", "xz"} {
		alg, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, AlgLZMA, alg)
	}

	alg, err := ParseAlgorithm("zstd")
	require.NoError(t, err)
	assert.Equal(t, AlgZstd, alg)

	_, err = ParseAlgorithm("brotli")
	assert.Error(t, err)
}

func TestNewCodecRejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewCodec(Algorithm('q'))
	assert.Error(t, err)
}

func TestStatsAdd(t *testing.T) {
	total := NewStats(100, 40).Add(NewStats(200, 60))
	assert.Equal(t, int64(300), total.OriginalSize)
	assert.Equal(t, int64(100), total.CompressedSize)
}

func TestStatsRatioAndPercentSaved(t *testing.T) {
	s := NewStats(200, 50)
	assert.InDelta(t, 0.25, s.Ratio(), 1e-9)
	assert.InDelta(t, 75.0, s.PercentSaved(), 1e-9)

	expanded := NewStats(100, 120)
	assert.InDelta(t, -20.0, expanded.PercentSaved(), 1e-9)

	var zero Stats
	assert.Zero(t, zero.Ratio())
	assert.Zero(t, zero.PercentSaved())
}
