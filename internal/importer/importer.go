// internal/importer/importer.go
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 1000
)

// RowWriter persists parsed rows.
type RowWriter interface {
	ImportRows(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error)
}

type Options struct {
	Workers   int
	BatchSize int
	// Root is the directory the files were collected from. Rows are keyed by
	// the slash separated path relative to it; without a Root, by base name.
	Root      string
	// OnFile is called after each file has been written.
	OnFile    func(path string, rows, skipped int)
}

// Importer parses CSV files concurrently and writes them one batch at a time.
type Importer struct {
	writer RowWriter
	opts   Options
}

func New(writer RowWriter, opts Options) *Importer {
	if opts.Workers < 1 {
		opts.Workers = defaultWorkers
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = defaultBatchSize
	}
	return &Importer{writer: writer, opts: opts}
}

type parsedFile struct {
	path    string
	rows    []domain.ImportRow
	skipped []RowError
}

// ImportFiles imports every file. Rows are keyed by source path and line, so
// importing a re-downloaded copy updates rows instead of duplicating them.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (domain.ImportResult, error) {
	var result domain.ImportResult
	if len(paths) == 0 {
		return result, nil
	}

	parsed := make([]parsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, skipped, err := parseFile(path, im.sourceName(path))
			if err != nil {
				return fmt.Errorf("error processing %s: %w", path, err)
			}
			parsed[i] = parsedFile{path: path, rows: rows, skipped: skipped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	products := make(map[string]struct{})
	suppliers := make(map[string]struct{})

	for _, file := range parsed {
		for _, skip := range file.skipped {
			log.Debug().Str("file", file.path).Int("line", skip.Line).Err(skip.Err).Msg("importer: row skipped")
		}

		for start := 0; start < len(file.rows); start += im.opts.BatchSize {
			end := min(start+im.opts.BatchSize, len(file.rows))
			batch, err := im.writer.ImportRows(ctx, file.rows[start:end])
			if err != nil {
				return result, fmt.Errorf("failed to import %s: %w", file.path, err)
			}
			result.Transactions += batch.Transactions
		}

		for _, row := range file.rows {
			products[row.ProductCode] = struct{}{}
			suppliers[row.SupplierCode] = struct{}{}
		}
		result.Files++
		result.Rows += len(file.rows)
		result.Skipped += len(file.skipped)

		log.Info().
			Str("file", file.path).
			Int("rows", len(file.rows)).
			Int("skipped", len(file.skipped)).
			Msg("importer: file imported")
		if im.opts.OnFile != nil {
			im.opts.OnFile(file.path, len(file.rows), len(file.skipped))
		}
	}

	result.Products = len(products)
	result.Suppliers = len(suppliers)
	return result, nil
}

// sourceName is the key rows of path are stored under.
func (im *Importer) sourceName(path string) string {
	if im.opts.Root != "" {
		rel, err := filepath.Rel(im.opts.Root, path)
		if err == nil && filepath.IsLocal(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

func parseFile(path, source string) ([]domain.ImportRow, []RowError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseCSV(file, source)
}

// CollectCSVFiles walks root and returns every .csv file in lexical order.
func CollectCSVFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
