// Package site builds the static outputs: a single document for a page
// list, a multi-page site with index and sitemap, and the dynamic page.
//
// Every build fetches first and writes last. A failed fetch or render leaves
// the output location untouched.
package site

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/hf-rowsite/pkg/client"
	"github.com/Sternrassler/hf-rowsite/pkg/pagination"
	"github.com/Sternrassler/hf-rowsite/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	filesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_files_written_total",
		Help: "Total output files written",
	})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rowsite_build_duration_seconds",
		Help:    "Build duration in seconds by mode",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"mode"})

	buildFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_build_failures_total",
		Help: "Total failed builds by mode",
	}, []string{"mode"})
)

// Output file names used in site mode.
const (
	IndexFile   = "index.html"
	SitemapFile = "sitemap.xml"
)

// PageFile returns the file name of the page at index (0-based).
// Files are numbered from 1: page 0 is page-0001.html.
func PageFile(index int) string {
	return fmt.Sprintf("page-%04d.html", index+1)
}

// Builder fetches rows and writes rendered HTML.
type Builder struct {
	fetcher  *pagination.Fetcher
	renderer *render.Renderer
	dataset  client.Dataset
	logger   zerolog.Logger
}

// NewBuilder creates a builder for one dataset.
func NewBuilder(fetcher *pagination.Fetcher, renderer *render.Renderer, dataset client.Dataset) *Builder {
	return &Builder{
		fetcher:  fetcher,
		renderer: renderer,
		dataset:  dataset,
		logger:   log.With().Str("component", "site-builder").Str("dataset", dataset.Name).Logger(),
	}
}

// BuildStatic fetches pages and writes them as one document to outPath.
func (b *Builder) BuildStatic(ctx context.Context, pages []int, outPath string) (err error) {
	defer observe("static", time.Now(), &err)

	results, err := b.fetcher.FetchPages(ctx, pages)
	if err != nil {
		return err
	}
	rows := pagination.Flatten(results)

	var buf bytes.Buffer
	if err := b.renderer.Document(&buf, render.DocumentData{
		Title:     b.dataset.Name,
		SourceURL: b.dataset.HubURL(),
		Rows:      rows,
	}); err != nil {
		return err
	}

	if err := writeFile(outPath, buf.Bytes()); err != nil {
		return err
	}

	b.logger.Info().
		Str("out", outPath).
		Str("pages", pagination.FormatPages(pages)).
		Int("rows", len(rows)).
		Msg("Static document written")
	return nil
}

// SiteResult summarises a site build.
type SiteResult struct {
	Pages   []render.PageLink
	Rows    int
	Sitemap bool
}

// BuildSite walks the dataset from page 0 until an empty page (or maxPages
// pages when maxPages > 0) and writes one file per page, an index and, when
// baseURL is set, a sitemap into outDir.
func (b *Builder) BuildSite(ctx context.Context, outDir string, maxPages int, baseURL string) (result SiteResult, err error) {
	defer observe("site", time.Now(), &err)

	results, err := b.fetcher.FetchAll(ctx, maxPages)
	if err != nil {
		return SiteResult{}, err
	}

	files := make(map[string][]byte, len(results)+2)
	order := make([]string, 0, len(results)+2)
	add := func(name string, data []byte) {
		files[name] = data
		order = append(order, name)
	}

	links := make([]render.PageLink, len(results))
	for i, page := range results {
		links[i] = render.PageLink{Number: i + 1, Href: PageFile(i), Rows: len(page.Rows)}
		result.Rows += len(page.Rows)
	}

	for i, page := range results {
		data := render.PageData{
			Title:     fmt.Sprintf("%s - page %d", b.dataset.Name, i+1),
			SourceURL: b.dataset.HubURL(),
			Rows:      page.Rows,
		}
		if i > 0 {
			data.Prev = links[i-1].Href
		}
		if i < len(results)-1 {
			data.Next = links[i+1].Href
		}

		var buf bytes.Buffer
		if err := b.renderer.Page(&buf, data); err != nil {
			return SiteResult{}, err
		}
		add(links[i].Href, buf.Bytes())
	}

	var index bytes.Buffer
	if err := b.renderer.Index(&index, render.IndexData{
		Title:     b.dataset.Name + " - index",
		SourceURL: b.dataset.HubURL(),
		Pages:     links,
	}); err != nil {
		return SiteResult{}, err
	}
	add(IndexFile, index.Bytes())

	if baseURL != "" {
		paths := make([]string, 0, len(links)+1)
		paths = append(paths, IndexFile)
		for _, l := range links {
			paths = append(paths, l.Href)
		}
		var sitemap bytes.Buffer
		if err := render.Sitemap(&sitemap, baseURL, paths); err != nil {
			return SiteResult{}, err
		}
		add(SitemapFile, sitemap.Bytes())
		result.Sitemap = true
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return SiteResult{}, fmt.Errorf("create output dir: %w", err)
	}
	for _, name := range order {
		if err := writeFile(filepath.Join(outDir, name), files[name]); err != nil {
			return SiteResult{}, err
		}
	}

	result.Pages = links
	b.logger.Info().
		Str("outdir", outDir).
		Int("pages", len(links)).
		Int("rows", result.Rows).
		Bool("sitemap", result.Sitemap).
		Msg("Site written")
	return result, nil
}

// DynamicOptions configures the client-side rendering page.
type DynamicOptions struct {
	// Pages fetched by the browser, in order.
	Pages []int
	// APIURL is the rows endpoint the browser calls.
	APIURL string
}

// WriteDynamic writes the client-side rendering page to outPath. No rows are fetched.
func (b *Builder) WriteDynamic(outPath string, opts DynamicOptions) (err error) {
	defer observe("dynamic", time.Now(), &err)

	if opts.APIURL == "" {
		opts.APIURL = client.DefaultAPIURL
	}

	var buf bytes.Buffer
	if err := b.renderer.Dynamic(&buf, render.DynamicData{
		Title:     b.dataset.Name,
		SourceURL: b.dataset.HubURL(),
		APIURL:    opts.APIURL,
		Dataset:   b.dataset,
		Pages:     opts.Pages,
		PerPage:   b.fetcher.PerPage(),
	}); err != nil {
		return err
	}

	if err := writeFile(outPath, buf.Bytes()); err != nil {
		return err
	}

	b.logger.Info().
		Str("out", outPath).
		Str("pages", pagination.FormatPages(opts.Pages)).
		Msg("Dynamic page written")
	return nil
}

func observe(mode string, start time.Time, err *error) {
	buildDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if *err != nil {
		buildFailuresTotal.WithLabelValues(mode).Inc()
	}
}

// writeFile replaces path atomically: the data goes to path.tmp, which is
// then renamed over path.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	filesWrittenTotal.Inc()
	return nil
}
