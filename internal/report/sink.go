package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

// Sink receives the result of every scan.
type Sink interface {
	Write(ctx context.Context, res *scan.Result) error
}

// Encode renders the indented JSON document of res.
func Encode(res *scan.Result) ([]byte, error) {
	data, err := json.MarshalIndent(NewDocument(res), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: encode: %w", err)
	}
	return data, nil
}

// FileSink writes arbitrage_report_<timestamp>.json into a directory and
// refreshes latest.json next to it.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink rooted at dir. The directory is created on
// first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, res *scan.Result) error {
	data, err := Encode(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("report: create dir %s: %w", s.dir, err)
	}

	name := fmt.Sprintf("arbitrage_report_%s.json", res.FinishedAt.UTC().Format("20060102_150405"))
	if err := writeAtomic(filepath.Join(s.dir, name), data); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, "latest.json"), data)
}

func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".report-*")
	if err != nil {
		return fmt.Errorf("report: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("report: rename %s: %w", dst, err)
	}
	return nil
}

// BlobSink uploads each report to <prefix>/<yyyy-mm-dd>/<run-id>.json.
type BlobSink struct {
	writer domain.BlobWriter
	prefix string
}

// NewBlobSink creates a BlobSink.
func NewBlobSink(writer domain.BlobWriter, prefix string) *BlobSink {
	return &BlobSink{writer: writer, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of res.
func (s *BlobSink) Key(res *scan.Result) string {
	return path.Join(s.prefix, res.FinishedAt.UTC().Format("2006-01-02"), res.RunID+".json")
}

// Write implements Sink.
func (s *BlobSink) Write(ctx context.Context, res *scan.Result) error {
	data, err := Encode(res)
	if err != nil {
		return err
	}
	key := s.Key(res)
	if err := s.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("report: upload %s: %w", key, err)
	}
	return nil
}
