// Package ingestion reads daily price history from local files so screens can
// run offline or against vendor exports.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/source"
)

// SourceName is the registry name of the file adapter.
const SourceName = "file"

const fileSuffix = ".csv"

// FileAdapter serves RawSeries from <dir>/<SYMBOL>.csv files.
//
// A missing file is reported as InvalidSymbol; a malformed file as
// SourceUnavailable.
type FileAdapter struct {
	dir string
	log zerolog.Logger
}

var _ source.Adapter = (*FileAdapter)(nil)

// NewFileAdapter returns an adapter reading from dir.
//
// Parameters:
//   - dir (string): directory holding one history file per symbol.
//
// Returns:
//   - *FileAdapter: an adapter named "file".
func NewFileAdapter(dir string) *FileAdapter {
	return &FileAdapter{dir: dir, log: logger.Component("source").With().Str("source", SourceName).Logger()}
}

func (f *FileAdapter) Name() string { return SourceName }

// Path returns the file that holds symbol's history.
func (f *FileAdapter) Path(symbol models.Symbol) string {
	return filepath.Join(f.dir, strings.ToUpper(symbol.String())+fileSuffix)
}

// Fetch parses the symbol's file and returns the bars in [start, end],
// sorted by date.
func (f *FileAdapter) Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error) {
	if symbol == "" || strings.ContainsAny(symbol.String(), `/\`) {
		return models.RawSeries{}, f.fail(symbol, models.ErrInvalidSymbol, errors.New("unusable symbol for a file name"))
	}
	if start.IsZero() || end.IsZero() || start.After(end) {
		return models.RawSeries{}, f.fail(symbol, models.ErrInvalidDateRange, fmt.Errorf("invalid window %s..%s",
			start.Format(models.DateLayout), end.Format(models.DateLayout)))
	}

	began := time.Now()
	path := f.Path(symbol)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.RawSeries{}, f.fail(symbol, models.ErrInvalidSymbol, fmt.Errorf("no history file %s", filepath.Base(path)))
		}
		return models.RawSeries{}, f.fail(symbol, models.ErrSourceUnavailable, err)
	}
	defer func() { _ = file.Close() }()

	all, err := parseHistory(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			return models.RawSeries{}, ctx.Err()
		}
		return models.RawSeries{}, f.fail(symbol, models.ErrSourceUnavailable, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}

	from, to := models.TruncateDate(start), models.TruncateDate(end)
	points := make([]models.PricePoint, 0, len(all))
	for _, p := range all {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	f.log.Debug().
		Str("symbol", symbol.String()).
		Int("rows", len(all)).
		Int("points", len(points)).
		Dur("elapsed", time.Since(began)).
		Msg("file read")

	return models.RawSeries{Symbol: symbol, Source: SourceName, Start: from, End: to, Points: points}, nil
}

func (f *FileAdapter) fail(symbol models.Symbol, kind, cause error) *models.SourceError {
	return &models.SourceError{Source: SourceName, Symbol: symbol, Kind: kind, Err: cause}
}
