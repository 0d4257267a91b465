package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const fragmentTimeout = 3 * time.Second

// PlaywrightExtractor drives a headless Chromium instance. The browser is
// shared across calls; each Extract runs in its own isolated browser context
// that is released on every exit path.
type PlaywrightExtractor struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

// NewPlaywrightExtractor launches headless Chromium. timeout bounds the
// navigation of each Extract call.
func NewPlaywrightExtractor(timeout time.Duration) (*PlaywrightExtractor, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, eris.Wrap(err, "scrape: start playwright")
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, eris.Wrap(err, "scrape: launch chromium")
	}

	return &PlaywrightExtractor{pw: pw, browser: browser, timeout: timeout}, nil
}

// Extract navigates to targetURL and reads the H1 and meta description.
// The H1 is required; the description is best-effort and degrades to the
// DescriptionUnavailable sentinel.
func (e *PlaywrightExtractor) Extract(ctx context.Context, targetURL string) (*PageContent, error) {
	browserCtx, err := e.browser.NewContext()
	if err != nil {
		return nil, eris.Wrap(err, "scrape: new browser context")
	}
	defer func() { _ = browserCtx.Close() }()

	// Closing the context aborts any in-flight navigation when the caller
	// cancels mid-extraction.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = browserCtx.Close()
		case <-done:
		}
	}()

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, eris.Wrap(err, "scrape: new page")
	}

	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(e.timeout.Milliseconds())),
	}); err != nil {
		return nil, eris.Wrapf(err, "scrape: goto %s", targetURL)
	}

	title, err := page.Locator("h1").First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(fragmentTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: read h1 of %s", targetURL)
	}

	content := &PageContent{
		URL:         targetURL,
		Title:       strings.TrimSpace(title),
		Description: DescriptionUnavailable,
	}

	desc, err := page.Locator(`meta[name="description"]`).First().GetAttribute("content", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(fragmentTimeout.Milliseconds())),
	})
	if err != nil {
		zap.L().Debug("scrape: no meta description", zap.String("url", targetURL), zap.Error(err))
	} else if s := strings.TrimSpace(desc); s != "" {
		content.Description = s
	}

	return content, nil
}

// Close shuts down the shared browser and the playwright driver.
func (e *PlaywrightExtractor) Close() error {
	if err := e.browser.Close(); err != nil {
		return eris.Wrap(err, "scrape: close browser")
	}
	return eris.Wrap(e.pw.Stop(), "scrape: stop playwright")
}
