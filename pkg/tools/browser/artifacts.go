package browser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ArtifactWriter persists screenshots, PDFs, traces and HAR files. Generated
// names are random so concurrent captures never collide.
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{outputDir: outputDir}
}

// Dir returns the output directory.
func (w *ArtifactWriter) Dir() string { return w.outputDir }

// Path returns requested if set, after validation, or a fresh file name in
// the output directory with the given extension.
func (w *ArtifactWriter) Path(requested, ext string) (string, error) {
	if requested != "" {
		if err := ValidatePath(requested, false); err != nil {
			return "", err
		}
		return requested, nil
	}
	return filepath.Join(w.outputDir, uuid.NewString()+ext), nil
}

// Write stores data at path, creating parent directories.
func (w *ArtifactWriter) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var disablePDFConfig sync.Once

// PDFPageCount returns the number of pages in a PDF document.
func PDFPageCount(data []byte) (int, error) {
	disablePDFConfig.Do(api.DisableConfigDir)
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return n, nil
}
