package compression

// Stats describes how well a piece of content compressed. Pure data; the
// derived values are functions of the two sizes and nothing else.
type Stats struct {
	OriginalSize   int64 `cbor:"originalSize" json:"originalSize"`
	CompressedSize int64 `cbor:"compressedSize" json:"compressedSize"`
}

func NewStats(original, compressed int) Stats {
	return Stats{OriginalSize: int64(original), CompressedSize: int64(compressed)}
}

// Add merges two stats, for accumulating per-glyph numbers into a per-content
// total.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		OriginalSize:   s.OriginalSize + other.OriginalSize,
		CompressedSize: s.CompressedSize + other.CompressedSize,
	}
}

// Ratio is compressed size over original size. 0 for empty input.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}
	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// PercentSaved is how much smaller the compressed form is, in percent.
// Negative when compression expanded the data.
func (s Stats) PercentSaved() float64 {
	if s.OriginalSize == 0 {
		return 0
	}
	return (1 - s.Ratio()) * 100
}
