package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestResolvePath(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"teams/team1.yml":             "name: t1\n",
		"shared/packages/example.yml": "url: https://example.com/pkg\n",
	})

	r := NewResolver()
	base := filepath.Join(tmp, "teams", "team1.yml")

	resolved, err := r.ResolvePath(base, "../shared/packages/example.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "shared", "packages", "example.yml"), resolved)

	_, err = r.ResolvePath(base, "../shared/packages/nope.yml")
	assert.Error(t, err, "references are never lazily created")
}

func TestLoadFile_Caches(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"a.yml": "name: a\n"})

	r := NewResolver()
	path := filepath.Join(tmp, "a.yml")

	first, err := r.LoadFile(path)
	require.NoError(t, err)
	second, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated loads share the cached document")

	r.ClearCache()
	third, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestFindReferencedFiles(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"teams/team1.yml": `
software:
  packages:
    - path: ../lib/chrome.yml
    - path: ../lib/firefox.yml
`,
		"lib/chrome.yml":  "url: https://example.com/chrome.pkg\n",
		"lib/firefox.yml": "url: https://example.com/firefox.pkg\n",
	})

	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(tmp, "teams", "team1.yml"))

	assert.Empty(t, skipped)
	assert.Equal(t, []string{
		filepath.Join(tmp, "lib", "chrome.yml"),
		filepath.Join(tmp, "lib", "firefox.yml"),
	}, refs)
}

func TestFindReferencedFiles_Transitive(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"a.yml": "path: b.yml\n",
		"b.yml": "path: c.yml\n",
		"c.yml": "name: leaf\n",
	})

	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(tmp, "a.yml"))

	assert.Empty(t, skipped)
	assert.Equal(t, []string{
		filepath.Join(tmp, "b.yml"),
		filepath.Join(tmp, "c.yml"),
	}, refs)
}

// Mutual references terminate: the root is not reported, and the peer
// is reported exactly once.
func TestFindReferencedFiles_Cycle(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"a.yml": "path: b.yml\n",
		"b.yml": "path: a.yml\n",
	})

	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(tmp, "a.yml"))

	assert.Empty(t, skipped)
	assert.Equal(t, []string{filepath.Join(tmp, "b.yml")}, refs)
}

// A broken reference is reported and skipped without hiding the rest
// of the graph.
func TestFindReferencedFiles_BadRefDoesNotAbort(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"teams/team1.yml": `
software:
  packages:
    - path: ../lib/chrome.yml
    - path: ../lib/missing.yml
    - path: ../lib/firefox.yml
`,
		"lib/chrome.yml":  "url: https://example.com/chrome.pkg\n",
		"lib/firefox.yml": "url: https://example.com/firefox.pkg\n",
	})

	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(tmp, "teams", "team1.yml"))

	assert.Equal(t, []string{
		filepath.Join(tmp, "lib", "chrome.yml"),
		filepath.Join(tmp, "lib", "firefox.yml"),
	}, refs)

	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(tmp, "teams", "team1.yml"), skipped[0].File)
	assert.Contains(t, skipped[0].Reason, "missing.yml")
}

func TestFindReferencedFiles_UnparseableRef(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"a.yml":      "path: broken.yml\n",
		"broken.yml": "key: [unclosed",
	})

	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(tmp, "a.yml"))

	// The reference resolves (the file exists) but its document does
	// not parse, so it is discovered and then reported.
	assert.Equal(t, []string{filepath.Join(tmp, "broken.yml")}, refs)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].File, "broken.yml")
}

func TestFindReferencedFiles_RootMissing(t *testing.T) {
	r := NewResolver()
	refs, skipped := r.FindReferencedFiles(filepath.Join(t.TempDir(), "nope.yml"))

	assert.Empty(t, refs)
	require.Len(t, skipped, 1)
}
