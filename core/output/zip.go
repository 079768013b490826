package output

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fbz-tec/crudx/internal/logger"
)

// newZipWriter creates a single-entry archive. The entry is named after the
// output file with the export format as its extension.
func newZipWriter(path, format string) (io.WriteCloser, error) {
	archivePath := fixExtension(path, ".zip")
	logger.Debug("Creating zip-compressed output file: %s", archivePath)

	file, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}
	zw := zip.NewWriter(file)

	entryName := zipEntryName(path, format)
	logger.Debug("Creating zip entry: %s", entryName)
	entry, err := zw.Create(entryName)
	if err != nil {
		closeBoth(zw, file)
		return nil, fmt.Errorf("error creating zip entry: %w", err)
	}

	return &compositeWriteCloser{
		Writer: entry,
		closeFunc: func() error {
			return closeBoth(zw, file)
		},
	}, nil
}

func zipEntryName(outputPath, format string) string {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(outputPath)), ".zip")
	if name == "" || name == "." {
		name = "users"
	}
	if format != "" && format != "template" && !strings.HasSuffix(name, "."+format) {
		name = fmt.Sprintf("%s.%s", name, format)
	}
	return name
}

func fixExtension(path, extension string) string {
	ext := filepath.Ext(path)
	if strings.ToLower(ext) != extension {
		path = path[:len(path)-len(ext)] + extension
	}
	return path
}
