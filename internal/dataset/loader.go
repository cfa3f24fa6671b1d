package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
)

// temporary and OS metadata files
var skipPatterns = []string{"~$", ".tmp", ".temp", "__pycache__", ".DS_Store", "Thumbs.db"}

// ShouldSkip reports whether a file name is a temporary or system file.
func ShouldSkip(name string) bool {
	for _, p := range skipPatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// LoadDir loads every supported file in dir concurrently. CSV/TSV files become
// datasets; .txt and .md files become documents. A file that fails to parse is
// logged and skipped. A missing directory yields an empty registry and an error.
func LoadDir(ctx context.Context, dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRegistry(nil, nil), fmt.Errorf("data directory not found: %s", dir)
		}
		return NewRegistry(nil, nil), fmt.Errorf("failed to read data directory: %w", err)
	}

	var (
		mu       sync.Mutex
		datasets []*Dataset
		docs     []Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ShouldSkip(name) {
			slog.Debug("skipping file", "file", name)
			continue
		}

		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".tsv":
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				ds, err := LoadCSVFile(path)
				if err != nil {
					slog.Warn("failed to load dataset", "file", name, "error", err)
					return nil
				}
				mu.Lock()
				datasets = append(datasets, ds)
				mu.Unlock()
				slog.Info("dataset loaded", "file", name, "rows", len(ds.Rows), "columns", len(ds.Columns))
				return nil
			})
		case ".txt", ".md":
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				raw, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("failed to load document", "file", name, "error", err)
					return nil
				}
				mu.Lock()
				docs = append(docs, Document{Name: name, Text: decode(raw)})
				mu.Unlock()
				return nil
			})
		default:
			slog.Debug("unsupported file format", "file", name)
		}
	}

	if err := g.Wait(); err != nil {
		return NewRegistry(nil, nil), err
	}

	reg := NewRegistry(datasets, docs)
	slog.Info("data directory loaded", "dir", dir, "datasets", len(datasets), "documents", len(docs))
	return reg, nil
}

// LoadCSVFile reads one CSV (or TSV) file. The dataset is named after the file.
func LoadCSVFile(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	return ParseCSV(filepath.Base(path), raw, comma)
}

// ParseCSV parses CSV bytes into a dataset. Input that is not valid UTF-8 is
// decoded as Latin-1. Malformed rows are skipped.
func ParseCSV(name string, data []byte, comma rune) (*Dataset, error) {
	text := decode(data)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", name)
		}
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%s: CSV has no columns", name)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}

	return New(name, headers, rows), nil
}

func decode(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1254.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
