package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/hf-rowsite/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_pages_fetched_total",
		Help: "Total pages fetched from the dataset-server",
	})

	rowsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_rows_fetched_total",
		Help: "Total rows fetched from the dataset-server",
	})
)

// Config holds fetcher configuration.
type Config struct {
	// PerPage is the number of rows requested per page.
	PerPage int
	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns the dataset-server page size and a 30s per-page timeout.
func DefaultConfig() Config {
	return Config{
		PerPage: PageSize,
		Timeout: 30 * time.Second,
	}
}

// RowsFetcher fetches one window of rows. *client.Client implements it.
type RowsFetcher interface {
	Rows(ctx context.Context, q client.RowsQuery) (*client.RowsResponse, error)
}

// PageResult holds the rows of one page.
type PageResult struct {
	Index int
	Rows  []client.Row
}

// Fetcher fetches pages of a dataset one at a time.
type Fetcher struct {
	rows    RowsFetcher
	dataset client.Dataset
	config  Config
	logger  zerolog.Logger
}

// NewFetcher creates a new page fetcher.
func NewFetcher(rows RowsFetcher, dataset client.Dataset, config Config) *Fetcher {
	if config.PerPage <= 0 {
		config.PerPage = PageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Fetcher{
		rows:    rows,
		dataset: dataset,
		config:  config,
		logger:  log.With().Str("component", "page-fetcher").Str("dataset", dataset.Name).Logger(),
	}
}

// PerPage returns the configured page size.
func (f *Fetcher) PerPage() int {
	return f.config.PerPage
}

// FetchPage fetches a single page.
func (f *Fetcher) FetchPage(ctx context.Context, page int) (PageResult, error) {
	if page < 0 {
		return PageResult{}, fmt.Errorf("%w: %d is negative", ErrInvalidPages, page)
	}

	pageCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	offset := Offset(page, f.config.PerPage)
	resp, err := f.rows.Rows(pageCtx, client.RowsQuery{
		Dataset: f.dataset,
		Offset:  offset,
		Length:  f.config.PerPage,
	})
	if err != nil {
		return PageResult{}, fmt.Errorf("fetch page %d (offset %d): %w", page, offset, err)
	}

	pagesFetchedTotal.Inc()
	rowsFetchedTotal.Add(float64(len(resp.Rows)))

	f.logger.Info().
		Int("page", page).
		Int("offset", offset).
		Int("rows", len(resp.Rows)).
		Msg("Page fetched")

	return PageResult{Index: page, Rows: resp.Rows}, nil
}

// FetchPages fetches pages sequentially in the order given.
// The first failure aborts and no results are returned.
func (f *Fetcher) FetchPages(ctx context.Context, pages []int) ([]PageResult, error) {
	start := time.Now()
	results := make([]PageResult, 0, len(pages))

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := f.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	f.logger.Info().
		Int("pages", len(results)).
		Int("rows", countRows(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// FetchAll walks pages from 0 until a page comes back empty.
// maxPages > 0 caps the number of non-empty pages returned.
func (f *Fetcher) FetchAll(ctx context.Context, maxPages int) ([]PageResult, error) {
	start := time.Now()
	var results []PageResult

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := f.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(result.Rows) == 0 {
			f.logger.Info().Int("page", page).Msg("No more rows")
			break
		}
		results = append(results, result)
	}

	f.logger.Info().
		Int("pages", len(results)).
		Int("rows", countRows(results)).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return results, nil
}

// Flatten concatenates page rows in page order.
func Flatten(results []PageResult) []client.Row {
	rows := make([]client.Row, 0, countRows(results))
	for _, r := range results {
		rows = append(rows, r.Rows...)
	}
	return rows
}

func countRows(results []PageResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Rows)
	}
	return n
}
