package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/feedrover/internal/crawler"
	"github.com/nao1215/feedrover/internal/model"
)

// Driver is a crawler.Driver backed by one Chrome tab.
type Driver struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	script       string
	scrollFactor float64
	logger       *slog.Logger

	closeOnce sync.Once
}

var _ crawler.Driver = (*Driver)(nil)

// startActions enables auth interception when the proxy needs credentials.
func (d *Driver) startActions(proxy model.ProxyRecord) []chromedp.Action {
	if !proxy.HasCredentials() {
		return nil
	}
	return []chromedp.Action{fetch.Enable().WithHandleAuthRequests(true)}
}

// listenForAuth answers proxy auth challenges and resumes paused requests.
// Enabling the Fetch domain pauses every request, so each one has to be
// continued explicitly.
func listenForAuth(tabCtx context.Context, username, password string) {
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch ev := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				resp := &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: username,
					Password: password,
				}
				_ = fetch.ContinueWithAuth(ev.RequestID, resp).Do(execCtx)
			}()
		case *fetch.EventRequestPaused:
			go func() {
				execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				_ = fetch.ContinueRequest(ev.RequestID).Do(execCtx)
			}()
		}
	})
}

// scoped derives a context from the tab that also ends when ctx ends.
// Cancelling it aborts the current action without closing the tab.
func (d *Driver) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(d.tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// run executes actions and reports ctx's error when ctx ended first.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate implements crawler.Driver.
func (d *Driver) Navigate(ctx context.Context, target crawler.Target) error {
	d.logger.Debug("navigating", "url", target.URL)
	if err := d.run(ctx, chromedp.Navigate(target.URL), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("failed to open %s: %w", target.URL, err)
	}
	return nil
}

// ExtractBatch implements crawler.Driver.
func (d *Driver) ExtractBatch(ctx context.Context) ([]model.FeedRecord, error) {
	var raw string
	if err := d.run(ctx, chromedp.Evaluate(d.script, &raw)); err != nil {
		return nil, fmt.Errorf("failed to run extraction script: %w", err)
	}
	return decodeBatch(raw)
}

// Advance implements crawler.Driver.
func (d *Driver) Advance(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Evaluate(scrollExpression(d.scrollFactor), nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// Close implements crawler.Driver. It is safe to call more than once.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = chromedp.Cancel(d.tabCtx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		d.cancelTab()
		d.cancelAlloc()
		d.logger.Debug("browser closed")
	})
	return err
}

func scrollExpression(factor float64) string {
	return fmt.Sprintf("window.scrollBy(0, Math.round(window.innerHeight * %g))", factor)
}
