package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZIP(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extract.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{
		"eo1.csv": "EIN,totrevenue\n1,2\n",
		"eo2.csv": "EIN,totrevenue\n3,4\n",
	})
	dest := t.TempDir()

	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestExtractZIPSingle(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{"hd2024.csv": "unitid\n100654\n"})
	dest := t.TempDir()

	path, err := ExtractZIPSingle(zipPath, dest)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unitid\n100654\n", string(data))
}

func TestExtractZIPSingleRejectsMultiple(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{"a.csv": "1", "b.csv": "2"})
	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIPSlip(t *testing.T) {
	zipPath := writeTestZIP(t, map[string]string{"../evil.csv": "x"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}
