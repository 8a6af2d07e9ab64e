// internal/artifacts/artifacts_test.go

package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "artifacts")
	return NewWriter(dir, zaptest.NewLogger(t))
}

func TestWriterCreatesDirectory(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.WriteScreenshot("verification.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, w.Path("verification.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestWriterOverwrites(t *testing.T) {
	w := newTestWriter(t)

	first, err := w.WriteScreenshot("verification.png", []byte("first run with a longer payload"))
	require.NoError(t, err)
	second, err := w.WriteScreenshot("verification.png", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriterNestedNames(t *testing.T) {
	w := newTestWriter(t)

	path, err := w.WriteReport(filepath.Join("runs", "latest", "report.json"), []byte("{}"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestWriterRejectsEscapingNames(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.WriteScreenshot("../escape.png", []byte("x"))
	require.Error(t, err)

	_, err = w.WriteScreenshot("/tmp/escape.png", []byte("x"))
	require.Error(t, err)
}

func TestWriterDir(t *testing.T) {
	w := newTestWriter(t)
	assert.Equal(t, w.dir, w.Dir())
	assert.Equal(t, filepath.Join(w.dir, "a.png"), w.Path("a.png"))
}
