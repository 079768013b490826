package output

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	None = "none"
	GZIP = "gzip"
	ZIP  = "zip"
	ZSTD = "zstd"
	LZ4  = "lz4"
)

// bufferSize for uncompressed output.
const bufferSize = 256 * 1024

// OutputConfig holds configuration for output file creation.
type OutputConfig struct {
	Path        string
	Compression string
	Format      string
}

// Compressions lists the accepted values for OutputConfig.Compression.
func Compressions() []string {
	return []string{None, GZIP, ZIP, ZSTD, LZ4}
}

// CreateWriter creates the output file described by cfg. Compressed outputs
// get the codec's extension appended unless the path already has it; zip
// replaces the extension instead. Closing the returned writer finalizes the
// codec and closes the file.
func CreateWriter(cfg OutputConfig) (io.WriteCloser, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Compression)) {
	case None, "":
		return newFileWriter(cfg.Path)
	case GZIP:
		return newCompressedWriter(cfg.Path, ".gz", GZIP, func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		})
	case ZIP:
		return newZipWriter(cfg.Path, cfg.Format)
	case ZSTD:
		return newCompressedWriter(cfg.Path, ".zst", ZSTD, func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		})
	case LZ4:
		return newCompressedWriter(cfg.Path, ".lz4", LZ4, func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		})
	default:
		return nil, fmt.Errorf("unsupported compression type %q (valid: %s)",
			cfg.Compression, strings.Join(Compressions(), ", "))
	}
}

func newFileWriter(path string) (io.WriteCloser, error) {
	logger.Debug("Creating uncompressed output file: %s", path)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}
	return &bufferedWriteCloser{Writer: bufio.NewWriterSize(file, bufferSize), underlying: file}, nil
}

func newCompressedWriter(path, ext, name string, wrap func(io.Writer) (io.WriteCloser, error)) (io.WriteCloser, error) {
	start := time.Now()
	if !strings.HasSuffix(strings.ToLower(path), ext) {
		path += ext
	}

	logger.Debug("Creating %s-compressed output file: %s", name, path)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	codec, err := wrap(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating %s writer: %w", name, err)
	}

	return &compositeWriteCloser{
		Writer: codec,
		closeFunc: func() error {
			err := closeBoth(codec, file)
			logger.Debug("%s file %s closed in %v", name, path, time.Since(start))
			return err
		},
	}, nil
}

// closeBoth closes inner then outer and returns the first error.
func closeBoth(inner, outer io.Closer) error {
	err := inner.Close()
	if ferr := outer.Close(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

// bufferedWriteCloser flushes its buffer before closing the underlying file.
type bufferedWriteCloser struct {
	*bufio.Writer
	underlying io.WriteCloser
}

func (bwc *bufferedWriteCloser) Close() error {
	if err := bwc.Writer.Flush(); err != nil {
		bwc.underlying.Close()
		return fmt.Errorf("error flushing buffer: %w", err)
	}
	return bwc.underlying.Close()
}

type compositeWriteCloser struct {
	io.Writer
	closeFunc func() error
}

func (c *compositeWriteCloser) Close() error {
	if c.closeFunc == nil {
		return nil
	}
	return c.closeFunc()
}
