package integrity

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glyphweave/glyphweave/pkg/types"
)

func TestDigestBytes(t *testing.T) {
	data := []byte("glyph payload")
	expected := sha512.Sum512(data)

	assert.Equal(t, types.Hash(expected), DigestBytes(data))
}

func TestDigestString(t *testing.T) {
	assert.Equal(t, DigestBytes([]byte("piece")), DigestString("piece"))
}

func TestDigestEmptyInput(t *testing.T) {
	assert.False(t, DigestBytes(nil).IsZero(), "SHA-512 of empty input is a real digest, not zero")
}

func TestContentIdentityDeterministic(t *testing.T) {
	a := ContentIdentity("author-1", "My Scroll", 1700000000000000000)
	b := ContentIdentity("author-1", "My Scroll", 1700000000000000000)
	assert.Equal(t, a, b)
}

func TestContentIdentityVariesPerInput(t *testing.T) {
	base := ContentIdentity("author-1", "My Scroll", 1700000000000000000)

	assert.NotEqual(t, base, ContentIdentity("author-2", "My Scroll", 1700000000000000000))
	assert.NotEqual(t, base, ContentIdentity("author-1", "Other Scroll", 1700000000000000000))
	assert.NotEqual(t, base, ContentIdentity("author-1", "My Scroll", 1700000000000000001))
}

func TestContentIdentityFieldSeparation(t *testing.T) {
	// Without separators "ab"+"c" and "a"+"bc" would collide.
	assert.NotEqual(t,
		ContentIdentity("ab", "c", 1),
		ContentIdentity("a", "bc", 1),
	)
}
