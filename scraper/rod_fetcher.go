package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"shelfmatch/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const systemChromium = "/usr/bin/chromium-browser"

// RodFetcher renders pages in a headless browser before reading their markup
type RodFetcher struct {
	browser   *rod.Browser
	userAgent string
	timeout   time.Duration
}

// NewRodFetcher launches a headless browser
func NewRodFetcher(userAgent string, timeout time.Duration) (*RodFetcher, error) {
	// Use system Chromium in Docker, auto-detect locally
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if _, err := os.Stat(systemChromium); err == nil {
		l = l.Bin(systemChromium)
		log.Printf("Using system Chromium at %s", systemChromium)
	} else {
		log.Printf("Using auto-detected Chromium (local environment)")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	log.Printf("Using browser at: %s", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RodFetcher{browser: browser, userAgent: userAgent, timeout: timeout}, nil
}

// Fetch navigates a fresh tab to the URL and returns the rendered markup
func (rf *RodFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rf.timeout)
	defer cancel()

	page, err := rf.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("%w: open tab: %v", models.ErrNetworkFailure, err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rf.userAgent}); err != nil {
		return "", fmt.Errorf("%w: set user agent: %v", models.ErrNetworkFailure, err)
	}
	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("%w: navigate: %v", models.ErrNetworkFailure, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: wait load: %v", models.ErrNetworkFailure, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: read markup: %v", models.ErrNetworkFailure, err)
	}
	return html, nil
}

// Close closes the browser
func (rf *RodFetcher) Close() {
	if rf.browser != nil {
		if err := rf.browser.Close(); err != nil {
			log.Printf("⚠️ Failed to close browser: %v", err)
		}
	}
}
