package sofascore

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
	defaultOrigin        = "https://www.sofascore.com"
	maxResponseBodyBytes = 16 << 20
	defaultHTTPIOTimeout = 30 * time.Second
)

type HTTPTransportConfig struct {
	Client    *fasthttp.Client
	UserAgent string
}

// HTTPTransport calls the upstream directly with headers copied from a
// desktop browser session.
type HTTPTransport struct {
	client    *fasthttp.Client
	userAgent string
}

func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		client = &fasthttp.Client{
			NoDefaultUserAgentHeader: true,
			MaxResponseBodySize:      maxResponseBodyBytes,
			ReadTimeout:              defaultHTTPIOTimeout,
			WriteTimeout:             defaultHTTPIOTimeout,
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPTransport{
		client:    client,
		userAgent: userAgent,
	}
}

func (t *HTTPTransport) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderUserAgent, t.userAgent)
	req.Header.Set(fasthttp.HeaderAccept, "application/json, text/plain, */*")
	req.Header.Set(fasthttp.HeaderAcceptLanguage, "en-US,en;q=0.9")
	req.Header.Set(fasthttp.HeaderReferer, defaultOrigin+"/")
	req.Header.Set(fasthttp.HeaderOrigin, defaultOrigin)
	req.Header.Set(fasthttp.HeaderCacheControl, "no-cache")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = t.client.DoDeadline(req, resp, deadline)
	} else {
		err = t.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return nil, fmt.Errorf("upstream status=%d body=%s", status, abbreviateBody(body))
	}

	return append([]byte(nil), body...), nil
}
