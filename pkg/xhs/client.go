package xhs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"xhscrawler/pkg/cookie"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/ratelimit"
	"xhscrawler/pkg/signer"
)

// DefaultTimeout bounds every upstream call
const DefaultTimeout = 30 * time.Second

// Proxies maps a URL scheme ("http", "https") to a proxy URL
type Proxies map[string]string

// Option configures a client
type Option func(*transport)

// WithBaseURL points the client at another API host
func WithBaseURL(baseURL string) Option {
	return func(t *transport) {
		if baseURL != "" {
			t.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout sets the per call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(t *transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithTransport replaces the HTTP round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(t *transport) {
		if rt != nil {
			t.roundTripper = rt
		}
	}
}

// WithRateLimiter throttles outgoing calls
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(t *transport) {
		if l != nil {
			t.limiter = l
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(t *transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// transport is the signed request core shared by the API clients
type transport struct {
	baseURL      string
	timeout      time.Duration
	roundTripper http.RoundTripper
	limiter      ratelimit.Limiter
	logger       logger.Logger
}

func newTransport(opts []Option) *transport {
	t := &transport{
		baseURL:      BaseURL,
		timeout:      DefaultTimeout,
		roundTripper: http.DefaultTransport,
		limiter:      ratelimit.Unlimited{},
		logger:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// call is one prepared upstream request
type call struct {
	method  string
	target  string
	body    []byte
	headers map[string]string
	cookies map[string]string
	proxies Proxies
}

func (t *transport) httpClient(proxies Proxies) (*http.Client, error) {
	rt := t.roundTripper
	if len(proxies) > 0 {
		base, ok := rt.(*http.Transport)
		if !ok {
			base = http.DefaultTransport.(*http.Transport)
		}
		clone := base.Clone()
		parsed := make(map[string]*url.URL, len(proxies))
		for scheme, raw := range proxies {
			u, err := url.Parse(raw)
			if err != nil {
				return nil, xerrors.Wrap(xerrors.KindInvalidInput, err, "invalid %s proxy", scheme)
			}
			parsed[strings.ToLower(scheme)] = u
		}
		clone.Proxy = func(req *http.Request) (*url.URL, error) {
			return parsed[req.URL.Scheme], nil
		}
		rt = clone
	}
	return &http.Client{Timeout: t.timeout, Transport: rt}, nil
}

// do sends c and applies the envelope rule: transport failure, non-2xx,
// unparsable JSON and success=false all become upstream_request_failed.
func (t *transport) do(ctx context.Context, c call) (gjson.Result, error) {
	log := t.logger.WithFields(map[string]interface{}{
		"api":         c.target,
		"cookie_keys": cookie.Keys(c.cookies),
	})

	client, err := t.httpClient(c.proxies)
	if err != nil {
		return gjson.Result{}, err
	}

	var body io.Reader
	if len(c.body) > 0 {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, t.baseURL+c.target, body)
	if err != nil {
		return gjson.Result{}, xerrors.Upstream(0, err, "build request %s", c.target)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if len(c.cookies) > 0 {
		req.Header.Set("Cookie", cookie.Header(c.cookies))
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, xerrors.Upstream(0, err, "rate limit wait for %s", c.target)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.LogUpstreamCall(log, c.method, c.target, 0, time.Since(start))
		return gjson.Result{}, xerrors.Upstream(0, err, "request %s failed", c.target)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	logger.LogUpstreamCall(log, c.method, c.target, resp.StatusCode, time.Since(start))
	if err != nil {
		return gjson.Result{}, xerrors.Upstream(0, err, "read response of %s", c.target)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, xerrors.Upstream(resp.StatusCode, nil, "unexpected status from %s", c.target)
	}
	if !gjson.ValidBytes(raw) {
		preview := string(raw)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		log.WarnWithFields("invalid JSON response", map[string]interface{}{"body_preview": preview})
		return gjson.Result{}, xerrors.Upstream(resp.StatusCode, nil, "invalid JSON from %s", c.target)
	}

	res := gjson.ParseBytes(raw)
	if !res.Get("success").Bool() {
		msg := res.Get("msg").String()
		if msg == "" {
			msg = "upstream reported failure"
		}
		return res, xerrors.Upstream(resp.StatusCode, nil, "%s", msg)
	}
	return res, nil
}

// Client talks to the PC web API
type Client struct {
	*transport
	signer   signer.Signer
	tracer   signer.Tracer
	searchID func() string
}

// searchSource is implemented by signers that own a clock and random source
type searchSource interface {
	Now() time.Time
	Int31() int32
}

// NewClient creates a PC web API client. When s also implements
// signer.Tracer it supplies the trace id headers, and when it exposes a
// clock and random source search ids are drawn from them.
func NewClient(s signer.Signer, opts ...Option) *Client {
	c := &Client{
		transport: newTransport(opts),
		signer:    s,
		searchID:  NewSearchID,
	}
	if tr, ok := s.(signer.Tracer); ok {
		c.tracer = tr
	}
	if src, ok := s.(searchSource); ok {
		c.searchID = func() string {
			return searchID(src.Now().UnixMilli(), int64(src.Int31()))
		}
	}
	return c
}

// SetSearchIDFunc overrides the search id generator
func (c *Client) SetSearchIDFunc(f func() string) {
	if f != nil {
		c.searchID = f
	}
}

func (c *Client) signed(ctx context.Context, method, api string, params []Param, payload any, cookies string, proxies Proxies) (gjson.Result, error) {
	target := Splice(api, params)
	body, err := signer.EncodeBody(payload)
	if err != nil {
		return gjson.Result{}, xerrors.Wrap(xerrors.KindInvalidInput, err, "encode body for %s", api)
	}

	jar := cookie.Parse(cookies)
	sig, err := c.signer.Sign(cookie.Account(jar), target, body)
	if err != nil {
		return gjson.Result{}, err
	}
	headers := signer.PCHeaders()
	signer.ApplyPC(headers, sig, c.tracer)

	return c.do(ctx, call{
		method:  method,
		target:  target,
		body:    body,
		headers: headers,
		cookies: jar,
		proxies: proxies,
	})
}

func (c *Client) get(ctx context.Context, api string, params []Param, cookies string, proxies Proxies) (gjson.Result, error) {
	return c.signed(ctx, http.MethodGet, api, params, nil, cookies, proxies)
}

func (c *Client) post(ctx context.Context, api string, payload any, cookies string, proxies Proxies) (gjson.Result, error) {
	return c.signed(ctx, http.MethodPost, api, nil, payload, cookies, proxies)
}
