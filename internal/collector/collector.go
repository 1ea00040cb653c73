package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/rs/zerolog"
)

// InputExtensions are the file extensions picked up when walking directories
var InputExtensions = map[string]bool{
	".ckl":   true,
	".xml":   true,
	".json":  true,
	".sarif": true,
	".csv":   true,
}

// Config holds configuration for the collector
type Config struct {
	MaxConcurrency int
	Timeout        time.Duration
	Logger         zerolog.Logger
	Convert        ConvertOptions
}

// Collector converts many input files concurrently
type Collector struct {
	config Config
}

// New creates a new collector with the given configuration
func New(config Config) *Collector {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &Collector{
		config: config,
	}
}

// FileError ties a conversion failure to its input file
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ConvertPaths converts every file named in paths, expanding directories.
// Successful conversions are returned in input order. Per-file failures do
// not stop the run; they are returned together as a *multierror.Error.
func (c *Collector) ConvertPaths(ctx context.Context, paths []string) ([]models.Conversion, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found")
	}

	c.config.Logger.Debug().Int("files", len(files)).Msg("Found input files")

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	return c.convertFiles(ctx, files)
}

// ExpandPaths resolves files and directories into a deduplicated file list.
// Directories are walked recursively and only files with a known input
// extension are kept; files named explicitly are always kept.
func ExpandPaths(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}

		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() || !InputExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	return files, nil
}

// convertResult holds the result of processing a single file
type convertResult struct {
	index      int
	conversion *models.Conversion
	err        error
}

// convertFiles processes files concurrently using a worker pool
func (c *Collector) convertFiles(ctx context.Context, files []string) ([]models.Conversion, error) {
	indexCh := make(chan int, len(files))
	resultCh := make(chan convertResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < c.config.MaxConcurrency; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, files, indexCh, resultCh)
	}

	for i := range files {
		indexCh <- i
	}
	close(indexCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]convertResult, len(files))
	done := make([]bool, len(files))
	for r := range resultCh {
		results[r.index] = r
		done[r.index] = true
	}

	var conversions []models.Conversion
	var errs *multierror.Error
	for i, r := range results {
		if !done[i] {
			r.err = ctx.Err()
			if r.err == nil {
				r.err = fmt.Errorf("not processed")
			}
		}
		if r.err != nil {
			errs = multierror.Append(errs, &FileError{Path: files[i], Err: r.err})
			c.config.Logger.Warn().Str("file", files[i]).Err(r.err).Msg("Conversion failed")
			continue
		}
		conversions = append(conversions, *r.conversion)
		c.config.Logger.Info().
			Str("file", filepath.Base(files[i])).
			Str("tool", string(r.conversion.Tool)).
			Msg("Converted")
	}

	return conversions, errs.ErrorOrNil()
}

// worker processes file indexes from the work channel
func (c *Collector) worker(ctx context.Context, wg *sync.WaitGroup, files []string, indexCh <-chan int, resultCh chan<- convertResult) {
	defer wg.Done()

	for idx := range indexCh {
		if ctx.Err() != nil {
			resultCh <- convertResult{index: idx, err: ctx.Err()}
			continue
		}
		conv, err := c.ConvertFile(files[idx])
		resultCh <- convertResult{index: idx, conversion: conv, err: err}
	}
}

// ConvertFile reads, detects and converts a single file
func (c *Collector) ConvertFile(path string) (*models.Conversion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	toolType, err := DetectFormat(data)
	if err != nil {
		return nil, fmt.Errorf("failed to detect format: %w", err)
	}
	if err := ValidateToolType(toolType); err != nil {
		return nil, err
	}

	opts := c.config.Convert
	opts.Logger = c.config.Logger.With().Str("file", path).Logger()

	exec, err := ConvertReport(data, toolType, opts)
	if err != nil {
		return nil, err
	}

	return &models.Conversion{
		Path:   path,
		Tool:   toolType,
		Output: exec,
	}, nil
}
