package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"
	"github.com/PuerkitoBio/goquery"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// CaptchaKind names a widget the solver understands.
type CaptchaKind string

const (
	CaptchaRecaptcha CaptchaKind = "recaptcha"
	CaptchaTurnstile CaptchaKind = "turnstile"
)

// Captcha is a solvable widget found on a challenge page.
type Captcha struct {
	Kind    CaptchaKind
	SiteKey string
}

// CaptchaSolver exchanges a widget's site key for a response token.
type CaptchaSolver interface {
	Solve(ctx context.Context, c Captcha, pageURL string) (string, error)
}

var (
	turnstileRenderPattern = regexp.MustCompile(`turnstile\.render\([^)]*sitekey['"]?\s*:\s*['"]([0-9A-Za-z_-]{10,})['"]`)
	recaptchaRenderPattern = regexp.MustCompile(`grecaptcha\.render\([^)]*sitekey['"]?\s*:\s*['"]([0-9A-Za-z_-]{10,})['"]`)
)

// DetectCaptcha finds a reCAPTCHA or Turnstile widget and its site key.
func DetectCaptcha(html string) (Captcha, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if key := siteKey(doc, ".cf-turnstile[data-sitekey], .cf-turnstile [data-sitekey]"); key != "" {
			return Captcha{Kind: CaptchaTurnstile, SiteKey: key}, true
		}
		if key := siteKey(doc, ".g-recaptcha[data-sitekey], .g-recaptcha [data-sitekey]"); key != "" {
			return Captcha{Kind: CaptchaRecaptcha, SiteKey: key}, true
		}
	}

	if m := turnstileRenderPattern.FindStringSubmatch(html); m != nil {
		return Captcha{Kind: CaptchaTurnstile, SiteKey: m[1]}, true
	}
	if m := recaptchaRenderPattern.FindStringSubmatch(html); m != nil {
		return Captcha{Kind: CaptchaRecaptcha, SiteKey: m[1]}, true
	}
	return Captcha{}, false
}

func siteKey(doc *goquery.Document, selector string) string {
	key, _ := doc.Find(selector).First().Attr("data-sitekey")
	return strings.TrimSpace(key)
}

// TwoCaptchaSolver solves widgets through the 2Captcha API.
type TwoCaptchaSolver struct {
	client *api2captcha.Client
	logger logging.Logger
}

// NewTwoCaptchaSolver returns nil when no API key is configured or
// auto-solve is off.
func NewTwoCaptchaSolver(cfg *config.Config, logger logging.Logger) *TwoCaptchaSolver {
	c := cfg.Fetcher.Captcha
	if c.APIKey == "" || !c.AutoSolve {
		return nil
	}

	client := api2captcha.NewClient(c.APIKey)
	timeout := int(c.Timeout.Seconds())
	if timeout <= 0 {
		timeout = 120
	}
	client.DefaultTimeout = timeout
	client.RecaptchaTimeout = timeout
	client.PollingInterval = 5

	return &TwoCaptchaSolver{
		client: client,
		logger: logger.WithField("component", "2captcha"),
	}
}

// Solve blocks until 2Captcha returns a token or ctx is done. The 2Captcha
// client has no context support, so a cancelled solve is abandoned rather
// than stopped.
func (s *TwoCaptchaSolver) Solve(ctx context.Context, c Captcha, pageURL string) (string, error) {
	var req api2captcha.Request
	switch c.Kind {
	case CaptchaRecaptcha:
		captcha := api2captcha.ReCaptcha{SiteKey: c.SiteKey, Url: pageURL}
		req = captcha.ToRequest()
	case CaptchaTurnstile:
		captcha := api2captcha.CloudflareTurnstile{SiteKey: c.SiteKey, Url: pageURL}
		req = captcha.ToRequest()
	default:
		return "", fmt.Errorf("unsupported captcha kind %q", c.Kind)
	}

	type solved struct {
		code string
		id   string
		err  error
	}
	done := make(chan solved, 1)
	started := time.Now()
	go func() {
		code, id, err := s.client.Solve(req)
		done <- solved{code: code, id: id, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.logger.WithError(res.err).Warn("Captcha solve failed", map[string]interface{}{
				"kind":       string(c.Kind),
				"url":        pageURL,
				"captcha_id": res.id,
			})
			return "", fmt.Errorf("failed to solve %s: %w", c.Kind, res.err)
		}
		s.logger.Info("Captcha solved", map[string]interface{}{
			"kind":     string(c.Kind),
			"url":      pageURL,
			"duration": time.Since(started).String(),
		})
		return res.code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// injectTokenJS writes the token into the widget's response field, fires its
// data-callback and submits the enclosing form. It reports whether a form
// was submitted.
const injectTokenJS = `(kind, token) => {
	const widgetSel = kind === 'turnstile' ? '.cf-turnstile' : '.g-recaptcha';
	const field = kind === 'turnstile' ? 'cf-turnstile-response' : 'g-recaptcha-response';
	const widget = document.querySelector(widgetSel) || document.querySelector('[data-sitekey]');

	let inputs = document.querySelectorAll('[name="' + field + '"]');
	if (inputs.length === 0 && widget) {
		const input = document.createElement('input');
		input.type = 'hidden';
		input.name = field;
		widget.appendChild(input);
		inputs = [input];
	}
	for (const input of inputs) {
		input.value = token;
		input.innerHTML = token;
	}

	if (widget) {
		const callback = widget.getAttribute('data-callback');
		if (callback && typeof window[callback] === 'function') {
			window[callback](token);
		}
	}

	const form = (widget && widget.closest('form')) || (inputs[0] && inputs[0].closest('form'));
	if (form) {
		form.submit();
		return true;
	}
	return false;
}`
