package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrSelectNotFound indicates the filter control never appeared on the page.
var ErrSelectNotFound = errors.New("select control not found")

const optionsScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) { return []; }
	return Array.from(el.querySelectorAll("option"), o => o.innerText);
})()`

// HeadlessConfig controls the chromedp extractor.
type HeadlessConfig struct {
	URL               string
	SelectClass       string
	UserAgent         string
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	SettleDelay       time.Duration
}

// Headless reads the rendered options through headless Chrome.
type Headless struct {
	cfg    HeadlessConfig
	logger *zap.Logger
}

// NewHeadless validates cfg and returns a Headless extractor. No browser is
// started until Options is called.
func NewHeadless(cfg HeadlessConfig, logger *zap.Logger) (*Headless, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.SelectClass == "" {
		return nil, fmt.Errorf("select class is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{cfg: cfg, logger: logger}, nil
}

// Options launches a browser, waits for the select control, lets the page settle
// and returns each option's innerText. The browser is released on every path.
func (h *Headless) Options(ctx context.Context) ([]string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, h.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	taskCtx, cancel := context.WithTimeout(browserCtx, h.budget())
	defer cancel()

	h.logger.Info("loading page in headless browser", zap.String("url", h.cfg.URL))
	var options []string
	if err := chromedp.Run(taskCtx, h.actions(&options)...); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	h.logger.Debug("read options", zap.Int("count", len(options)))
	return options, nil
}

func (h *Headless) allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
}

func (h *Headless) actions(options *[]string) []chromedp.Action {
	sel := h.selector()
	return []chromedp.Action{
		h.userAgentAction(),
		withTimeout(h.cfg.NavigationTimeout, chromedp.Navigate(h.cfg.URL)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			err := withTimeout(h.cfg.WaitTimeout, chromedp.WaitReady(sel, chromedp.ByQuery)).Do(ctx)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrSelectNotFound, sel, err)
			}
			return nil
		}),
		chromedp.Sleep(h.cfg.SettleDelay),
		chromedp.Evaluate(h.script(), options),
	}
}

func (h *Headless) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if h.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(h.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (h *Headless) selector() string {
	return "." + h.cfg.SelectClass
}

func (h *Headless) script() string {
	return fmt.Sprintf(optionsScript, strconv.Quote(h.selector()))
}

// budget bounds the whole browser session.
func (h *Headless) budget() time.Duration {
	return h.cfg.NavigationTimeout + h.cfg.WaitTimeout + h.cfg.SettleDelay + 10*time.Second
}

func withTimeout(d time.Duration, action chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return action.Do(ctx)
	})
}
