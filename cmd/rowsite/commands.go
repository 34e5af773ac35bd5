package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Sternrassler/hf-rowsite/internal/config"
	"github.com/Sternrassler/hf-rowsite/internal/tracing"
	"github.com/Sternrassler/hf-rowsite/pkg/client"
	"github.com/Sternrassler/hf-rowsite/pkg/logging"
	"github.com/Sternrassler/hf-rowsite/pkg/metrics"
	"github.com/Sternrassler/hf-rowsite/pkg/pagination"
	"github.com/Sternrassler/hf-rowsite/pkg/render"
	"github.com/Sternrassler/hf-rowsite/pkg/site"
	"github.com/Sternrassler/hf-rowsite/pkg/storage"
)

// exitUsage is the exit code for invalid arguments.
const exitUsage = 2

func usageError(c *cli.Context, err error) error {
	return usageExit(c.Command.Name, err)
}

// onUsageError turns flag parsing errors (unknown flags, malformed values)
// into usage exits for the named command; "" is the root.
func onUsageError(command string) cli.OnUsageErrorFunc {
	return func(_ *cli.Context, err error, _ bool) error {
		return usageExit(command, err)
	}
}

func usageExit(command string, err error) error {
	help := "rowsite --help"
	if command != "" {
		help = "rowsite " + command + " --help"
	}
	return cli.Exit(fmt.Sprintf("%v\nRun '%s' for usage.", err, help), exitUsage)
}

func logFlags(cfg *config.AppConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: cfg.Log.Level, Usage: "debug, info, warn or error"},
		&cli.BoolFlag{Name: "log-pretty", Value: cfg.Log.Pretty, Usage: "human-readable console logs"},
		&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to `FILE` when the command finishes"},
	}
}

func datasetFlags(cfg *config.AppConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dataset", Value: cfg.Dataset.Name, Usage: "dataset name on the Hub"},
		&cli.StringFlag{Name: "config", Value: cfg.Dataset.Config, Usage: "dataset config"},
		&cli.StringFlag{Name: "split", Value: cfg.Dataset.Split, Usage: "dataset split"},
		&cli.StringFlag{Name: "text-field", Value: cfg.Dataset.TextField, Usage: "row field rendered as card text"},
		&cli.StringFlag{Name: "title-field", Value: cfg.Dataset.TitleField, Usage: "row field shown as card heading (empty hides it)"},
		&cli.StringFlag{Name: "lang-field", Value: cfg.Dataset.LangField, Usage: "row field shown as language chip (empty hides it)"},
		&cli.StringFlag{Name: "date-field", Value: cfg.Dataset.DateField, Usage: "row field shown as date chip (empty hides it)"},
		&cli.StringFlag{Name: "link-field", Value: cfg.Dataset.LinkField, Usage: "row field shown as source link (empty hides it)"},
		&cli.StringFlag{Name: "api-url", Value: cfg.Client.APIURL, Usage: "dataset-server rows endpoint"},
		&cli.StringFlag{Name: "user-agent", Value: cfg.Client.UserAgent, Usage: "User-Agent header"},
		&cli.IntFlag{Name: "retries", Value: cfg.Client.Retries, Usage: "extra attempts for 5xx, 429 and network errors"},
		&cli.DurationFlag{Name: "timeout", Value: cfg.Client.Timeout, Usage: "timeout of a single request"},
		&cli.StringFlag{Name: "redis-url", Value: cfg.Redis.URL, Usage: "cache responses in Redis"},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// session holds what a command needs after flag parsing.
type session struct {
	cfg         *config.AppConfig
	metricsFile string
	shutdown    tracing.ShutdownFunc

	dataset client.Dataset
	client  *client.Client
	redis   *redis.Client
	builder *site.Builder
}

// setup configures logging and tracing.
func setup(c *cli.Context, cfg *config.AppConfig) (*session, error) {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(c.String("log-level")),
		Pretty: c.Bool("log-pretty"),
		Output: c.App.ErrWriter,
	})

	shutdown, err := tracing.Init(c.Context, "rowsite")
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:         cfg,
		metricsFile: c.String("metrics-file"),
		shutdown:    shutdown,
	}, nil
}

// connect creates the dataset-server client and the site builder from the dataset flags.
func (rt *session) connect(c *cli.Context) error {
	rt.dataset = client.Dataset{
		Name:   c.String("dataset"),
		Config: c.String("config"),
		Split:  c.String("split"),
	}
	if err := rt.dataset.Validate(); err != nil {
		return usageError(c, err)
	}
	if c.Int("retries") < 0 {
		return usageError(c, fmt.Errorf("--retries must not be negative"))
	}

	ccfg := client.DefaultConfig(c.String("user-agent"))
	ccfg.APIURL = c.String("api-url")
	ccfg.Timeout = c.Duration("timeout")
	ccfg.Retry.MaxAttempts = 1 + c.Int("retries")
	ccfg.CacheTTL = rt.cfg.Redis.CacheTTL
	if tracing.Enabled() {
		ccfg.Transport = tracing.Transport(nil)
	}

	if u := c.String("redis-url"); u != "" {
		opts, err := redis.ParseURL(u)
		if err != nil {
			return usageError(c, fmt.Errorf("invalid redis url: %w", err))
		}
		rt.redis = redis.NewClient(opts)
		ccfg.Redis = rt.redis
	}

	cl, err := client.New(ccfg)
	if err != nil {
		return usageError(c, err)
	}
	rt.client = cl

	fields := render.Fields{
		Text:  c.String("text-field"),
		Title: c.String("title-field"),
		Lang:  c.String("lang-field"),
		Date:  c.String("date-field"),
		Link:  c.String("link-field"),
	}

	// a page may spend every attempt plus the backoff between them
	attempts := time.Duration(ccfg.Retry.MaxAttempts)
	fetcher := pagination.NewFetcher(cl, rt.dataset, pagination.Config{
		PerPage: pagination.PageSize,
		Timeout: ccfg.Timeout*attempts + ccfg.Retry.MaxBackoff*(attempts-1),
	})
	rt.builder = site.NewBuilder(fetcher, render.New(fields), rt.dataset)
	return nil
}

func (rt *session) Close() {
	if rt.metricsFile != "" {
		if err := metrics.WriteTextfile(rt.metricsFile); err != nil {
			log.Warn().Err(err).Str("path", rt.metricsFile).Msg("Failed to write metrics file")
		}
	}
	if rt.redis != nil {
		rt.redis.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Tracing shutdown failed")
	}
}

// withRuntime runs fn with a session and releases it afterwards.
func withRuntime(cfg *config.AppConfig, connect bool, fn func(c *cli.Context, rt *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := setup(c, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if connect {
			if err := rt.connect(c); err != nil {
				return err
			}
		}
		return fn(c, rt)
	}
}

func parsePages(c *cli.Context) ([]int, error) {
	pages, err := pagination.ParsePages(c.String("pages"))
	if err != nil {
		return nil, usageError(c, err)
	}
	return pages, nil
}

func buildCommand(cfg *config.AppConfig) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "fetch pages and write one static HTML document",
		UsageText: "rowsite build --pages 1,2 [--out docs/static.html]",
		Flags: flags(datasetFlags(cfg), logFlags(cfg), []cli.Flag{
			&cli.StringFlag{Name: "pages", Value: cfg.Pages, Usage: "comma-separated page indices, 100 rows each (default $ROWSITE_PAGES)"},
			&cli.StringFlag{Name: "out", Value: "docs/static.html", Usage: "output `FILE`"},
		}),
		Action: func(c *cli.Context) error {
			pages, err := parsePages(c)
			if err != nil {
				return err
			}
			return withRuntime(cfg, true, func(c *cli.Context, rt *session) error {
				return rt.builder.BuildStatic(c.Context, pages, c.String("out"))
			})(c)
		},
	}
}

func siteCommand(cfg *config.AppConfig) *cli.Command {
	return &cli.Command{
		Name:  "site",
		Usage: "walk every page and write page files, an index and a sitemap",
		Flags: flags(datasetFlags(cfg), logFlags(cfg), []cli.Flag{
			&cli.StringFlag{Name: "outdir", Value: "docs", Usage: "output `DIR`"},
			&cli.IntFlag{Name: "max-pages", Usage: "stop after N pages (0 walks until an empty page)"},
			&cli.StringFlag{Name: "base-url", Value: cfg.BaseURL, Usage: "public site URL; enables sitemap.xml"},
		}),
		Action: func(c *cli.Context) error {
			if c.Int("max-pages") < 0 {
				return usageError(c, fmt.Errorf("--max-pages must not be negative"))
			}
			if base := c.String("base-url"); base != "" {
				if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return usageError(c, fmt.Errorf("--base-url must be an absolute http(s) url (got %q)", base))
				}
			}
			return withRuntime(cfg, true, func(c *cli.Context, rt *session) error {
				result, err := rt.builder.BuildSite(c.Context, c.String("outdir"), c.Int("max-pages"), c.String("base-url"))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Wrote %d page(s) + %s into %s\n", len(result.Pages), site.IndexFile, c.String("outdir"))
				return nil
			})(c)
		},
	}
}

func dynamicCommand(cfg *config.AppConfig) *cli.Command {
	return &cli.Command{
		Name:  "dynamic",
		Usage: "write the page that fetches rows in the browser",
		Flags: flags(datasetFlags(cfg), logFlags(cfg), []cli.Flag{
			&cli.StringFlag{Name: "pages", Value: cfg.Pages, Usage: "comma-separated page indices fetched by the browser"},
			&cli.StringFlag{Name: "out", Value: "docs/index.html", Usage: "output `FILE`"},
		}),
		Action: func(c *cli.Context) error {
			pages, err := parsePages(c)
			if err != nil {
				return err
			}
			return withRuntime(cfg, true, func(c *cli.Context, rt *session) error {
				return rt.builder.WriteDynamic(c.String("out"), site.DynamicOptions{
					Pages:  pages,
					APIURL: c.String("api-url"),
				})
			})(c)
		},
	}
}

func serveCommand(cfg *config.AppConfig) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve an output directory with a rows passthrough, health and metrics",
		Flags: flags(datasetFlags(cfg), logFlags(cfg), []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "docs", Usage: "directory to serve"},
			&cli.StringFlag{Name: "port", Value: cfg.Port, Usage: "listen port"},
		}),
		Action: withRuntime(cfg, true, func(c *cli.Context, rt *session) error {
			srv := newServer(c.String("dir"), rt.client, rt.dataset)
			return srv.ListenAndServe(c.Context, ":"+c.String("port"))
		}),
	}
}

func publishCommand(cfg *config.AppConfig) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "upload an output directory to S3-compatible storage",
		Flags: flags(logFlags(cfg), []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "docs", Usage: "directory to upload"},
			&cli.StringFlag{Name: "prefix", Usage: "object key prefix"},
			&cli.StringFlag{Name: "s3-endpoint", Value: cfg.S3.Endpoint, Usage: "S3 endpoint host[:port]"},
			&cli.StringFlag{Name: "s3-bucket", Value: cfg.S3.Bucket, Usage: "bucket name"},
		}),
		Action: withRuntime(cfg, false, func(c *cli.Context, rt *session) error {
			s3 := cfg.S3
			s3.Endpoint = c.String("s3-endpoint")
			s3.Bucket = c.String("s3-bucket")

			uploader, err := storage.NewMinIO(c.Context, s3)
			if err != nil {
				return err
			}
			objs, err := storage.NewPublisher(uploader).PublishDir(c.Context, c.String("dir"), c.String("prefix"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Published %d object(s) to %s\n", len(objs), s3.Bucket)
			return nil
		}),
	}
}
