package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const (
	defaultFetchTimeout  = 20 * time.Second
	defaultFetchMaxChars = 20000
)

// webFetcher renders pages in headless Chromium and reads their visible text
type webFetcher struct {
	timeout  time.Duration
	maxChars int
}

// NewWebFetcher creates a web fetcher backed by chromedp
func NewWebFetcher(timeout time.Duration, maxChars int) repo.WebFetcherRepo {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxChars <= 0 {
		maxChars = defaultFetchMaxChars
	}
	return &webFetcher{timeout: timeout, maxChars: maxChars}
}

// Fetch navigates to url and returns document.body.innerText, capped at maxChars
func (f *webFetcher) Fetch(parentCtx context.Context, url string) (string, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, f.timeout)
	defer timeoutCancel()

	var text string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", &domain.ConversionError{Source: url, Err: fmt.Errorf("chromedp run: %w", err)}
	}

	text = collapseBlankLines(text)
	if text == "" {
		return "", &domain.ConversionError{Source: url, Err: domain.ErrNoContent}
	}
	if r := []rune(text); len(r) > f.maxChars {
		text = string(r[:f.maxChars])
	}
	fmt.Printf("[Fetcher] %s: %d chars\n", url, len([]rune(text)))
	return text, nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
