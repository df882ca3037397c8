package report

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"docrot/internal/errors"
)

// Write delivers rendered report bytes to path. An empty path or "-"
// writes to stdout. A .gz or .zst extension compresses transparently,
// which keeps large JSON reports cheap to archive as CI artifacts.
func Write(path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return errors.New(errors.OutputFailed, "cannot write report to stdout", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.OutputFailed, "cannot create report file", err)
	}
	if err := writeCompressed(f, path, data); err != nil {
		_ = f.Close()
		return errors.New(errors.OutputFailed, "cannot write report file", err)
	}
	if err := f.Close(); err != nil {
		return errors.New(errors.OutputFailed, "cannot write report file", err)
	}
	return nil
}

func writeCompressed(w io.Writer, path string, data []byte) error {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	default:
		_, err := w.Write(data)
		return err
	}
}
