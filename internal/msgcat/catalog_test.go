package msgcat

import (
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogParses(t *testing.T) {
	c := Default()
	assert.Contains(t, c.Keys(), "game.won")
	for _, k := range c.Keys() {
		_, err := template.New(k).Parse(c.data[k])
		assert.NoError(t, err, k)
	}
}

func TestRender(t *testing.T) {
	c := Default()
	s, err := c.Render("queue.position", map[string]any{"Position": 2, "Size": 3, "Rating": 1201})
	require.NoError(t, err)
	assert.Equal(t, "Queue position 2 of 3 (rating 1201)", s)

	_, err = c.Render("queue.position", map[string]any{"Position": 2})
	assert.Error(t, err)

	_, err = c.Render("nope", nil)
	assert.Error(t, err)
	assert.Equal(t, "nope", c.Text("nope", nil))
	assert.Equal(t, "You won!", c.Text("game.won", nil))
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("game:\n  won: \"Victory!\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "Victory!", c.Text("game.won", nil))
	assert.Equal(t, "You lost :(", c.Text("game.lost", nil))
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("game:\n  won: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("game:\n  won: b\n"), 0o644))
	_, err := New(dir)
	assert.ErrorContains(t, err, "duplicate override key")
}

func TestNonStringLeaf(t *testing.T) {
	_, err := parseYAMLToFlat([]byte("game:\n  count: 3\n"))
	assert.Error(t, err)
}
