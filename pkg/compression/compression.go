// Package compression turns glyph payloads into the smallest bytes the ledger
// will carry. The compressed form is self-describing: the first byte names the
// algorithm, so Decompress never needs to know what a writer chose.
package compression

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// Algorithm tags the compressed byte stream.
type Algorithm byte

const (
	// AlgLZMA is the default. Slow but dense, which is what you want when
	// every byte costs ledger fees.
	AlgLZMA Algorithm = 'x'
	// AlgZstd trades a few percent of density for much faster round trips.
	AlgZstd Algorithm = 'z'
)

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "lzma", "xz":
		return AlgLZMA, nil
	case "zstd":
		return AlgZstd, nil
	}
	return 0, fmt.Errorf("unknown compression algorithm %q", name)
}

// Codec compresses and decompresses glyph payloads.
// decompress(compress(x)) == x holds for every input, including empty and
// already-incompressible data.
type Codec struct {
	alg  Algorithm
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

func NewCodec(alg Algorithm) (*Codec, error) {
	switch alg {
	case AlgLZMA, AlgZstd:
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", string(alg))
	}

	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Codec{alg: alg, zenc: zenc, zdec: zdec}, nil
}

// Compress returns the tagged compressed form of data.
func (c *Codec) Compress(data []byte) ([]byte, error) {
	switch c.alg {
	case AlgZstd:
		out := make([]byte, 1, len(data)/2+64)
		out[0] = byte(AlgZstd)
		return c.zenc.EncodeAll(data, out), nil
	default:
		var buf bytes.Buffer
		buf.WriteByte(byte(AlgLZMA))
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("creating lzma writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lzma compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("closing lzma writer: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// Decompress reverses Compress. It dispatches on the algorithm tag, so it can
// decode payloads written with any supported algorithm, not just the codec's
// configured one.
func (c *Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("compressed payload is empty, missing algorithm tag")
	}

	body := data[1:]
	switch Algorithm(data[0]) {
	case AlgZstd:
		out, err := c.zdec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case AlgLZMA:
		r, err := lzma.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating lzma reader: %w", err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("lzma decompress: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown compression tag 0x%02x", data[0])
}

// Close releases the zstd encoder's worker goroutines.
func (c *Codec) Close() {
	c.zenc.Close()
	c.zdec.Close()
}
