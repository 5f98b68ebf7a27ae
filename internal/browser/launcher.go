package browser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/nao1215/feedrover/internal/crawler"
	"github.com/nao1215/feedrover/internal/model"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultScrollFactor is how many viewport heights Advance scrolls.
const DefaultScrollFactor = 3.0

//go:embed extract.js
var defaultExtractScript string

// Launcher starts browsers for crawl sessions.
type Launcher struct {
	headless     bool
	userAgent    string
	script       string
	scrollFactor float64
	execPath     string
	logger       *slog.Logger
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithHeadless toggles headless mode. Default is true.
func WithHeadless(headless bool) LauncherOption {
	return func(l *Launcher) {
		l.headless = headless
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) LauncherOption {
	return func(l *Launcher) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithExtractScript replaces the embedded extraction script.
// The script must evaluate to a JSON string holding an array of records.
func WithExtractScript(script string) LauncherOption {
	return func(l *Launcher) {
		if script != "" {
			l.script = script
		}
	}
}

// WithScrollFactor sets how many viewport heights each Advance scrolls.
func WithScrollFactor(f float64) LauncherOption {
	return func(l *Launcher) {
		if f > 0 {
			l.scrollFactor = f
		}
	}
}

// WithExecPath sets the Chrome binary. Empty means chromedp's lookup.
func WithExecPath(path string) LauncherOption {
	return func(l *Launcher) {
		l.execPath = path
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// NewLauncher creates a Launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		headless:     true,
		userAgent:    DefaultUserAgent,
		script:       defaultExtractScript,
		scrollFactor: DefaultScrollFactor,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Factory adapts the launcher to crawler.DriverFactory.
func (l *Launcher) Factory() crawler.DriverFactory {
	return l.Open
}

// allocatorOptions returns the Chrome command line for proxy.
func (l *Launcher) allocatorOptions(proxy model.ProxyRecord) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(l.userAgent),
		chromedp.ProxyServer(proxy.URL()),
		chromedp.WindowSize(1280, 1024),
		chromedp.Flag("headless", l.headless),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}
	return opts
}

// Open starts a browser that egresses through proxy.
// The browser lives until the returned driver is closed or ctx ends.
func (l *Launcher) Open(ctx context.Context, proxy model.ProxyRecord) (crawler.Driver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions(proxy)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		tabCtx:       tabCtx,
		cancelTab:    tabCancel,
		cancelAlloc:  allocCancel,
		script:       l.script,
		scrollFactor: l.scrollFactor,
		logger:       l.logger.With("proxy", proxy.Redacted()),
	}

	if proxy.HasCredentials() {
		listenForAuth(tabCtx, proxy.Username, proxy.Password)
	}

	// The first Run launches Chrome.
	if err := chromedp.Run(tabCtx, d.startActions(proxy)...); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Debug("browser started", "headless", l.headless)
	return d, nil
}
