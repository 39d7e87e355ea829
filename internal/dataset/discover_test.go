package dataset

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFindsNestedAnnotations(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/data"
	mustWrite(t, fs, filepath.Join(root, "p01", AnnotationFile), "")
	mustWrite(t, fs, filepath.Join(root, "p00", AnnotationFile), "")
	mustWrite(t, fs, filepath.Join(root, "p00", "left_0.png"), "")
	mustWrite(t, fs, filepath.Join(root, "notes.txt"), "")

	files, err := Discover(fs, root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "p00", AnnotationFile),
		filepath.Join(root, "p01", AnnotationFile),
	}, files)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(afero.NewMemMapFs(), "/nope")
	assert.Error(t, err)
}

func mustWrite(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}
