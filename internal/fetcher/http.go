package fetcher

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
)

// httpEngine issues plain HTTP requests through resty.
type httpEngine struct {
	client *resty.Client
}

func newHTTPEngine(timeout time.Duration) *httpEngine {
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &httpEngine{client: client}
}

// NewHTTPFetcher returns a Fetcher backed by plain HTTP requests.
func NewHTTPFetcher(cfg *config.Config, logger logging.Logger, opts ...Option) *Client {
	return newClient(newHTTPEngine(cfg.Fetcher.Timeout), cfg, logger, opts...)
}

func (e *httpEngine) Name() string {
	return "http"
}

func (e *httpEngine) Do(ctx context.Context, a attempt) (*Document, error) {
	req := e.client.R().
		SetContext(ctx).
		SetHeaders(a.Profile.Headers)

	var (
		resp *resty.Response
		err  error
	)
	if a.Method == http.MethodPost {
		resp, err = req.SetFormData(a.Form).Post(a.URL)
	} else {
		resp, err = req.Get(a.URL)
	}
	if err != nil {
		return nil, &NetworkError{URL: a.URL, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &NetworkError{URL: a.URL, StatusCode: status}
	}

	finalURL := a.URL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Document{
		URL:        finalURL,
		Body:       string(resp.Body()),
		StatusCode: status,
		FetchedAt:  resp.ReceivedAt(),
	}, nil
}

func (e *httpEngine) Close() error {
	e.client.GetClient().CloseIdleConnections()
	return nil
}
