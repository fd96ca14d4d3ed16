package words

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsInvalidAndDuplicates(t *testing.T) {
	got := Normalize([]string{"Cyber", " neural ", "", "rate-limit", "cyber", "web3", "averyveryverylongwordthatistoolong"})
	assert.Equal(t, []string{"cyber", "neural", "web3"}, got)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("ios"))
	assert.True(t, Valid("web3"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("Cyber"))
	assert.False(t, Valid("two words"))
}

func TestReadFileSkipsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\nplasma\nLASER\n\nplasma\n"), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"plasma", "laser"}, got)
}

func TestInitLoadsEmbeddedVocabulary(t *testing.T) {
	require.NoError(t, Init(""))
	assert.Greater(t, Stats(), 100)
	assert.True(t, Contains("cyber"))
	assert.True(t, Contains("ratelimit"))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		assert.True(t, Contains(Random(r)))
	}
}

func TestLoadUsesConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("Plasma\nlaser\n"), 0o644))

	got, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"plasma", "laser"}, got)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = load(empty)
	assert.EqualError(t, err, "words: vocabulary is empty")

	_, err = load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	got, err = load("")
	require.NoError(t, err)
	assert.Contains(t, got, "cyber")
}
