// internal/artifacts/artifacts.go

// Package artifacts persists run outputs, screenshots and rendered reports,
// under a single artifact directory.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Writer stores artifacts by name. Writes overwrite, so repeated runs of a
// scenario converge on one file per artifact name.
type Writer struct {
	dir    string
	logger *zap.Logger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger.Named("artifacts")}
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string { return w.dir }

// Path resolves an artifact name inside the artifact directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteScreenshot stores screenshot bytes under name and returns the full
// path.
func (w *Writer) WriteScreenshot(name string, data []byte) (string, error) {
	return w.write(name, data)
}

// WriteReport stores a rendered report under name and returns the full path.
func (w *Writer) WriteReport(name string, data []byte) (string, error) {
	return w.write(name, data)
}

func (w *Writer) write(name string, data []byte) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("artifact name %q escapes the artifact directory", name)
	}
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", name, err)
	}
	w.logger.Debug("Artifact written.", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
