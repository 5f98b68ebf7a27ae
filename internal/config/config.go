package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "feedrover"

	// DefaultQuota is how many new records end a session.
	DefaultQuota = 50

	// DefaultEmptyRounds is how many consecutive rounds without a new record
	// abort a session. Five scrolls with nothing new usually means the page
	// stopped loading or the proxy got a login wall.
	DefaultEmptyRounds = 5

	// DefaultPacingMin and DefaultPacingMax bound the random wait between
	// rounds. Uniform jitter keeps the scroll rhythm from looking scripted.
	DefaultPacingMin = 2 * time.Second
	DefaultPacingMax = 5 * time.Second

	// DefaultNavigationTimeout bounds opening the target page through a proxy.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultConcurrency is the number of targets crawled at once.
	// Each session runs its own browser, so this is kept low.
	DefaultConcurrency = 2

	// DefaultStartInterval spaces out session starts in a batch.
	DefaultStartInterval = 3 * time.Second

	// DefaultScrollFactor is how many viewport heights each round scrolls.
	DefaultScrollFactor = 3.0

	// DefaultLogFormat picks a console handler on a terminal.
	DefaultLogFormat = "auto"
)

// Config holds all configuration options for feedrover.
// It is populated from defaults, the config file, the environment and CLI
// flags, and passed down explicitly.
//
// Design decision: We use a single flat struct, as the option count is small
// and every option is read by the crawl command.
type Config struct {
	// Targets are keywords or http(s) URLs, one session each.
	Targets []string

	// Quota is the number of new records that completes a session.
	Quota int

	// EmptyRounds is the consecutive empty round count that aborts a session.
	EmptyRounds int

	// PacingMin and PacingMax bound the random delay between rounds.
	PacingMin time.Duration
	PacingMax time.Duration

	// NavigationTimeout bounds opening the target page.
	NavigationTimeout time.Duration

	// Concurrency is the number of sessions run at once.
	Concurrency int

	// StartInterval is the minimum gap between session starts. Zero disables it.
	StartInterval time.Duration

	// OutputDir receives one RSS file per target.
	// Defaults to XDGDataDir()/feeds.
	OutputDir string

	// SearchURL expands keyword targets; %s is replaced by the escaped keyword.
	// Empty means the crawler's default search template.
	SearchURL string

	// Headless runs Chrome without a window.
	Headless bool

	// UserAgent overrides the browser user agent. Empty keeps the default.
	UserAgent string

	// ChromePath is the Chrome binary. Empty lets chromedp find one.
	ChromePath string

	// ScrollFactor is how many viewport heights each round scrolls.
	ScrollFactor float64

	// ExtractScript is a path to a JavaScript file replacing the built-in
	// extraction script.
	ExtractScript string

	// DBDir is the directory of the SQLite database holding the proxy pool
	// and run history. Defaults to XDGDataDir().
	DBDir string

	// Proxies is a comma-separated proxy list seeded into the pool before
	// crawling. Usually read from FEEDROVER_PROXIES.
	Proxies string

	// Verbose enables debug logging; Quiet limits output to warnings.
	Verbose bool
	Quiet   bool

	// LogFormat is auto, text or json.
	LogFormat string

	// ConfigFilePath is an explicit .feedrover file path.
	ConfigFilePath string

	// File holds the loaded config file, if any.
	File *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Quota:             DefaultQuota,
		EmptyRounds:       DefaultEmptyRounds,
		PacingMin:         DefaultPacingMin,
		PacingMax:         DefaultPacingMax,
		NavigationTimeout: DefaultNavigationTimeout,
		Concurrency:       DefaultConcurrency,
		StartInterval:     DefaultStartInterval,
		OutputDir:         DefaultOutputDir(),
		Headless:          true,
		ScrollFactor:      DefaultScrollFactor,
		DBDir:             XDGDataDir(),
		LogFormat:         DefaultLogFormat,
	}
}

// XDGDataDir returns the XDG data directory for feedrover.
// On Linux: ~/.local/share/feedrover
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for feedrover.
// On Linux: ~/.config/feedrover
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultOutputDir is where RSS files go when --output-dir is not set.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataDir(), "feeds")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Quota <= 0 {
		return ErrInvalidQuota
	}
	if c.EmptyRounds <= 0 {
		return ErrInvalidThreshold
	}
	if c.PacingMin < 0 || c.PacingMax < c.PacingMin {
		return ErrInvalidPacing
	}
	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.ScrollFactor <= 0 {
		return ErrInvalidScrollFactor
	}
	switch c.LogFormat {
	case "", "auto", "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	// Per-target overrides must be valid too.
	for _, target := range c.Targets {
		s := c.ForTarget(target)
		if s.Quota <= 0 {
			return ErrInvalidQuota
		}
		if s.EmptyRounds <= 0 {
			return ErrInvalidThreshold
		}
		if s.PacingMin < 0 || s.PacingMax < s.PacingMin {
			return ErrInvalidPacing
		}
	}

	return nil
}

// TargetSettings are the effective crawl limits for one target.
type TargetSettings struct {
	Quota         int
	EmptyRounds   int
	PacingMin     time.Duration
	PacingMax     time.Duration
	ExtractScript string
}

// ForTarget returns the settings for target: the global values with the
// config file's entry for that target applied on top.
func (c *Config) ForTarget(target string) TargetSettings {
	s := TargetSettings{
		Quota:         c.Quota,
		EmptyRounds:   c.EmptyRounds,
		PacingMin:     c.PacingMin,
		PacingMax:     c.PacingMax,
		ExtractScript: c.ExtractScript,
	}
	if c.File == nil {
		return s
	}

	o, ok := c.File.Targets[target]
	if !ok {
		return s
	}
	if o.Quota != 0 {
		s.Quota = o.Quota
	}
	if o.EmptyRounds != 0 {
		s.EmptyRounds = o.EmptyRounds
	}
	if o.PacingMin != 0 {
		s.PacingMin = o.PacingMin
	}
	if o.PacingMax != 0 {
		s.PacingMax = o.PacingMax
	}
	if o.ExtractScript != "" {
		s.ExtractScript = o.ExtractScript
	}
	return s
}
