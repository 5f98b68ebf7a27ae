package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/browser"
	"github.com/nao1215/feedrover/internal/config"
	"github.com/nao1215/feedrover/internal/crawler"
	"github.com/nao1215/feedrover/internal/database"
	flog "github.com/nao1215/feedrover/internal/log"
	"github.com/nao1215/feedrover/internal/model"
	"github.com/nao1215/feedrover/internal/proxy"
	"github.com/nao1215/feedrover/internal/rss"
)

// errSessionsAborted is returned when at least one session did not complete.
var errSessionsAborted = errors.New("one or more sessions did not reach their quota")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [target...]",
		Short: "Crawl targets into RSS files",
		Long: `Crawl opens each target through a proxy from the pool, scrolls until the
quota of new posts is reached and appends them to
<output-dir>/<target>-<run id>.xml.

A target is either an http(s) URL or a keyword, which is expanded with the
search URL template. Every session writes its own feed file, named after the
run id shown by "feedrover history". Items are appended as they are accepted,
so an interrupted crawl keeps everything it already wrote.

Each session ends in exactly one outcome:
  complete            quota reached
  no_proxy_available  the proxy pool is empty
  navigation_timeout  the page did not open in time
  persist_failure     the feed file could not be written
  no_progress         too many rounds in a row found nothing new
  cancelled           interrupted by a signal
  fault               unexpected internal error

Examples:
  # Crawl one keyword with the default quota
  feedrover crawl golang

  # Two targets, larger quota, custom output directory
  feedrover crawl -q 200 -o ./feeds golang "https://x.com/golang"

  # Use proxies from the environment for this run only
  FEEDROVER_PROXIES="10.0.0.1:8080:user:pass" feedrover crawl golang

Configuration file (.feedrover) example:
  defaults:
    quota: 100
    pacingMin: 3s
    pacingMax: 8s
  targets:
    golang:
      quota: 300`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Session limits
	cmd.Flags().IntP("quota", "q", config.DefaultQuota,
		"Number of new records that completes a session")
	cmd.Flags().Int("empty-rounds", config.DefaultEmptyRounds,
		"Consecutive rounds without new records that abort a session")
	cmd.Flags().Duration("pacing-min", config.DefaultPacingMin,
		"Minimum random delay between rounds")
	cmd.Flags().Duration("pacing-max", config.DefaultPacingMax,
		"Maximum random delay between rounds")
	cmd.Flags().Duration("nav-timeout", config.DefaultNavigationTimeout,
		"Timeout for opening a target page")

	// Batch flags
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of targets crawled at once")
	cmd.Flags().Duration("start-interval", config.DefaultStartInterval,
		"Minimum delay between session starts (0 disables)")

	// Output
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir(),
		"Directory for RSS files")
	cmd.Flags().String("search-url", "",
		"Search URL template for keyword targets, %s is replaced by the keyword")

	// Browser
	cmd.Flags().Bool("headless", true, "Run Chrome without a window")
	cmd.Flags().String("user-agent", "", "Override the browser user agent")
	cmd.Flags().String("chrome-path", "", "Chrome binary (default: auto-detect)")
	cmd.Flags().Float64("scroll-factor", config.DefaultScrollFactor,
		"Viewport heights scrolled per round")
	cmd.Flags().String("extract-script", "",
		"JavaScript file replacing the built-in extraction script")

	// Proxies and configuration file
	cmd.Flags().String("proxies", "",
		"Comma-separated proxy list seeded before crawling (default: $FEEDROVER_PROXIES)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .feedrover in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := flog.NewLogger(os.Stderr, flog.Options{
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
		Format:  cfg.LogFormat,
	})
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	db, err := openDB(cfg.DBDir)
	if err != nil {
		return err
	}
	defer db.Close()

	return runCrawl(ctx, cfg, db, browser.NewLauncher(launcherOptions(cfg, "", logger)...).Factory(),
		cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from cobra command flags, the config file and
// the environment. Explicit flags win over the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Quota, err = flags.GetInt("quota"); err != nil {
		return nil, err
	}
	if cfg.EmptyRounds, err = flags.GetInt("empty-rounds"); err != nil {
		return nil, err
	}
	if cfg.PacingMin, err = flags.GetDuration("pacing-min"); err != nil {
		return nil, err
	}
	if cfg.PacingMax, err = flags.GetDuration("pacing-max"); err != nil {
		return nil, err
	}
	if cfg.NavigationTimeout, err = flags.GetDuration("nav-timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.StartInterval, err = flags.GetDuration("start-interval"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.SearchURL, err = flags.GetString("search-url"); err != nil {
		return nil, err
	}
	if cfg.Headless, err = flags.GetBool("headless"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.ScrollFactor, err = flags.GetFloat64("scroll-factor"); err != nil {
		return nil, err
	}
	if cfg.ExtractScript, err = flags.GetString("extract-script"); err != nil {
		return nil, err
	}
	if cfg.Proxies, err = flags.GetString("proxies"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	global, err := getGlobalOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = global.verbose
	cfg.Quiet = global.quiet
	cfg.LogFormat = global.logFormat
	cfg.DBDir = global.dbDir

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue without one.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file, flags.Changed)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv()
	cfg.Targets = args

	return cfg, nil
}

// launcherOptions builds browser options for cfg. script overrides the
// extraction script when non-empty.
func launcherOptions(cfg *config.Config, script string, logger *slog.Logger) []browser.LauncherOption {
	return []browser.LauncherOption{
		browser.WithHeadless(cfg.Headless),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithExecPath(cfg.ChromePath),
		browser.WithScrollFactor(cfg.ScrollFactor),
		browser.WithExtractScript(script),
		browser.WithLogger(logger),
	}
}

// resolveTargets turns the raw arguments into targets and rejects two
// targets that would share a feed name.
func resolveTargets(cfg *config.Config) ([]crawler.Target, error) {
	targets := make([]crawler.Target, 0, len(cfg.Targets))
	bySlug := make(map[string]string, len(cfg.Targets))
	for _, raw := range cfg.Targets {
		t, err := crawler.NewTarget(raw, cfg.SearchURL)
		if err != nil {
			return nil, err
		}
		slug := t.Slug()
		if prev, ok := bySlug[slug]; ok {
			return nil, fmt.Errorf("%w: %q and %q share the feed name %s", crawler.ErrInvalidTarget, prev, raw, slug)
		}
		bySlug[slug] = raw
		targets = append(targets, t)
	}
	return targets, nil
}

// feedPath returns the RSS file written by one run of target.
func feedPath(outputDir string, t crawler.Target, runID string) string {
	return filepath.Join(outputDir, t.Slug()+"-"+runID+".xml")
}

// seedFromConfig adds the configured proxy list to the pool.
func seedFromConfig(ctx context.Context, cfg *config.Config, db *database.ProxyDB, logger *slog.Logger) error {
	if cfg.Proxies == "" {
		return nil
	}
	records, err := proxy.ParseList(cfg.Proxies)
	if err != nil {
		return err
	}
	added, err := db.SeedProxies(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("proxy pool seeded", "parsed", len(records), "added", added)
	return nil
}

// runCrawl runs one session per target and records every outcome.
// defaultFactory opens browsers for targets without their own script.
func runCrawl(
	ctx context.Context,
	cfg *config.Config,
	db *database.ProxyDB,
	defaultFactory crawler.DriverFactory,
	out io.Writer,
	logger *slog.Logger,
) error {
	targets, err := resolveTargets(cfg)
	if err != nil {
		return err
	}

	if err := seedFromConfig(ctx, cfg, db, logger); err != nil {
		return fmt.Errorf("failed to seed proxies: %w", err)
	}

	allocator := proxy.NewAllocator(db, proxy.WithLogger(logger))
	progress := newProgressView(!cfg.Quiet && flog.IsTerminal(os.Stderr))
	defer progress.stop()

	factories := &factoryCache{
		cfg:      cfg,
		fallback: defaultFactory,
		logger:   logger,
		byScript: make(map[string]crawler.DriverFactory),
	}

	newSession := func(t crawler.Target) (*crawler.Session, error) {
		settings := cfg.ForTarget(t.Name)

		factory, err := factories.get(settings.ExtractScript)
		if err != nil {
			return nil, err
		}

		runID := uuid.NewString()
		path := feedPath(cfg.OutputDir, t, runID)
		doc, err := rss.Create(path, rss.Channel{
			Title:       "feedrover: " + t.Name,
			Link:        t.URL,
			Description: "Posts collected by feedrover for " + t.Name,
		})
		if err != nil {
			return nil, err
		}

		return crawler.NewSession(allocator, factory, doc, t,
			crawler.WithQuota(settings.Quota),
			crawler.WithEmptyRoundThreshold(settings.EmptyRounds),
			crawler.WithPacing(settings.PacingMin, settings.PacingMax),
			crawler.WithNavigationTimeout(cfg.NavigationTimeout),
			crawler.WithOutputPath(path),
			crawler.WithRunID(runID),
			crawler.WithLogger(logger),
			crawler.WithProgress(progress.update),
		), nil
	}

	var (
		mu      sync.Mutex
		aborted int
	)
	runner := crawler.NewBatchRunner(
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithStartRate(cfg.StartInterval),
		crawler.WithBatchLogger(logger),
		crawler.WithResultHook(func(res crawler.Result) {
			run := res.Run()
			// Saved with a fresh context so cancelled runs are still recorded.
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := db.SaveRun(saveCtx, &run); err != nil {
				logger.Error("failed to save run", "target", res.Target, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if res.Outcome.Aborted() {
				aborted++
			}
			progress.finish(res.Target)
			printResult(out, res)
		}),
	)

	logger.Info("starting crawl",
		"targets", len(targets),
		"concurrency", cfg.Concurrency,
		"output", cfg.OutputDir,
	)
	runner.RunBatch(ctx, targets, newSession)

	if aborted > 0 {
		return fmt.Errorf("%w (%d of %d)", errSessionsAborted, aborted, len(targets))
	}
	return nil
}

// printResult writes the terminal state of one session.
func printResult(out io.Writer, res crawler.Result) {
	if res.Outcome == model.OutcomeComplete {
		fmt.Fprintf(out, "%s: complete, %d new record(s) in %d round(s) -> %s\n",
			res.Target, res.Accepted, res.Rounds, res.OutputPath)
		return
	}
	cause := "unknown cause"
	if res.Err != nil {
		cause = flog.Redact(res.Err.Error())
	}
	fmt.Fprintf(out, "%s: %s after %d new record(s): %s\n", res.Target, res.Outcome, res.Accepted, cause)
}

// factoryCache builds one browser launcher per extraction script file.
type factoryCache struct {
	cfg      *config.Config
	fallback crawler.DriverFactory
	logger   *slog.Logger

	mu       sync.Mutex
	byScript map[string]crawler.DriverFactory
}

func (c *factoryCache) get(scriptPath string) (crawler.DriverFactory, error) {
	if scriptPath == "" {
		return c.fallback, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.byScript[scriptPath]; ok {
		return f, nil
	}

	script, err := os.ReadFile(scriptPath) //nolint:gosec // user-provided script path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read extract script: %w", err)
	}
	f := browser.NewLauncher(launcherOptions(c.cfg, string(script), c.logger)...).Factory()
	c.byScript[scriptPath] = f
	return f, nil
}

// progressView shows a spinner with the latest session progress on a terminal.
type progressView struct {
	spin *spinner.Spinner

	mu     sync.Mutex
	latest map[string]crawler.Progress
}

func newProgressView(enabled bool) *progressView {
	p := &progressView{latest: make(map[string]crawler.Progress)}
	if !enabled {
		return p
	}
	p.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	p.spin.Suffix = " starting..."
	p.spin.Start()
	return p
}

func (p *progressView) update(pr crawler.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[pr.Target] = pr
	p.render()
}

func (p *progressView) finish(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.latest, target)
	p.render()
}

// render must be called with p.mu held.
func (p *progressView) render() {
	if p.spin == nil {
		return
	}
	accepted, quota := 0, 0
	for _, pr := range p.latest {
		accepted += pr.Accepted
		quota += pr.Quota
	}
	p.spin.Lock()
	p.spin.Suffix = fmt.Sprintf(" %d session(s) running, %d/%d records", len(p.latest), accepted, quota)
	p.spin.Unlock()
}

func (p *progressView) stop() {
	if p.spin != nil {
		p.spin.Stop()
	}
}
