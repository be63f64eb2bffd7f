package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// browserEngine renders the inventory page in headless Chromium, for dealer
// platforms that build their listing grid client side.
type browserEngine struct {
	headless bool
	bin      string
	settle   time.Duration
	timeout  time.Duration
	solver   CaptchaSolver
	logger   logging.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserFetcher returns a Fetcher backed by a lazily launched headless browser.
func NewBrowserFetcher(cfg *config.Config, logger logging.Logger, opts ...Option) *Client {
	e := &browserEngine{
		headless: cfg.Fetcher.Browser.Headless,
		bin:      cfg.Fetcher.Browser.Bin,
		settle:   cfg.Fetcher.Browser.Settle,
		timeout:  cfg.Fetcher.Timeout,
		logger:   logger.WithField("component", "browser"),
	}
	if solver := NewTwoCaptchaSolver(cfg, logger); solver != nil {
		e.solver = solver
	}
	return newClient(e, cfg, logger, opts...)
}

func (e *browserEngine) Name() string {
	return "browser"
}

func (e *browserEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New().
		Headless(e.headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if e.bin != "" {
		l = l.Bin(e.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	e.logger.Info("Browser launched", map[string]interface{}{"headless": e.headless})
	e.launcher = l
	e.browser = browser
	return browser, nil
}

func (e *browserEngine) Do(ctx context.Context, a attempt) (*Document, error) {
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, &NetworkError{URL: a.URL, Err: err}
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, &NetworkError{URL: a.URL, Err: fmt.Errorf("failed to open page: %w", err)}
	}
	defer page.Close()

	extra := make([]string, 0, len(a.Profile.Headers)*2)
	for name, value := range a.Profile.Headers {
		if name == "User-Agent" {
			if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: value}); err != nil {
				e.logger.Debug("Failed to set user agent", map[string]interface{}{"error": err.Error()})
			}
			continue
		}
		extra = append(extra, name, value)
	}
	if len(extra) > 0 {
		if _, err := page.SetExtraHeaders(extra); err != nil {
			e.logger.Debug("Failed to set extra headers", map[string]interface{}{"error": err.Error()})
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := openPage(p, a); err != nil {
		return nil, &NetworkError{URL: a.URL, Err: fmt.Errorf("navigation failed: %w", err)}
	}
	if err := p.WaitLoad(); err != nil {
		return nil, &NetworkError{URL: a.URL, Err: fmt.Errorf("page load failed: %w", err)}
	}

	if e.settle > 0 {
		if err := sleepContext(navCtx, e.settle); err != nil {
			return nil, &NetworkError{URL: a.URL, Err: err}
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, &NetworkError{URL: a.URL, Err: fmt.Errorf("failed to read page html: %w", err)}
	}

	finalURL := a.URL
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	if e.solver != nil && checkContent(finalURL, html, 0) != nil {
		html = e.solveChallenge(ctx, page, finalURL, html)
	}

	return &Document{
		URL:        finalURL,
		Body:       html,
		StatusCode: http.StatusOK,
		FetchedAt:  time.Now(),
	}, nil
}

// solveChallenge answers a captcha widget on a challenge page and returns the
// HTML of the page it leads to. On any failure the original HTML is returned
// and content checks reject it as before.
func (e *browserEngine) solveChallenge(ctx context.Context, page *rod.Page, pageURL, html string) string {
	captcha, ok := DetectCaptcha(html)
	if !ok {
		return html
	}

	token, err := e.solver.Solve(ctx, captcha, pageURL)
	if err != nil {
		return html
	}

	navCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	p := page.Context(navCtx)

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	res, err := p.Eval(injectTokenJS, string(captcha.Kind), token)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to inject captcha token", map[string]interface{}{"url": pageURL})
		return html
	}
	if res.Value.Bool() {
		wait()
	}
	if e.settle > 0 {
		if err := sleepContext(navCtx, e.settle); err != nil {
			return html
		}
	}

	solved, err := p.HTML()
	if err != nil {
		return html
	}
	e.logger.Info("Captcha challenge submitted", map[string]interface{}{
		"kind": string(captcha.Kind),
		"url":  pageURL,
	})
	return solved
}

// submitFormJS posts fields to url from a blank page, the way a search form
// on the dealer site would.
const submitFormJS = `(url, fields) => {
	const form = document.createElement('form');
	form.method = 'POST';
	form.action = url;
	for (const [name, value] of Object.entries(fields)) {
		const input = document.createElement('input');
		input.type = 'hidden';
		input.name = name;
		input.value = value;
		form.appendChild(input);
	}
	document.body.appendChild(form);
	form.submit();
}`

// openPage loads the attempt's URL, submitting the form body for POST upstreams.
func openPage(p *rod.Page, a attempt) error {
	switch a.Method {
	case "", http.MethodGet:
		return p.Navigate(a.URL)
	case http.MethodPost:
		if err := p.Navigate("about:blank"); err != nil {
			return err
		}
		form := a.Form
		if form == nil {
			form = map[string]string{}
		}
		wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
		if _, err := p.Eval(submitFormJS, a.URL, form); err != nil {
			return fmt.Errorf("form submit failed: %w", err)
		}
		wait()
		return nil
	default:
		return fmt.Errorf("browser engine: %w: %s", ErrMethodUnsupported, a.Method)
	}
}

func (e *browserEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
	return err
}
