package sofascore

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
)

type BrowserTransportConfig struct {
	// ExecPath overrides the Chrome binary lookup.
	ExecPath  string
	UserAgent string
	// OriginURL is opened before the fetch runs. Empty keeps about:blank.
	OriginURL string
}

// BrowserTransport runs fetch() inside a fresh headless Chrome per call so
// the request carries a real browser fingerprint.
type BrowserTransport struct {
	execPath  string
	userAgent string
	originURL string
}

func NewBrowserTransport(cfg BrowserTransportConfig) *BrowserTransport {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &BrowserTransport{
		execPath:  cfg.ExecPath,
		userAgent: userAgent,
		originURL: cfg.OriginURL,
	}
}

func (t *BrowserTransport) Get(ctx context.Context, url string) ([]byte, error) {
	script, err := fetchScript(url)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, t.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var body string
	if err := chromedp.Run(browserCtx, t.actions(script, &body)...); err != nil {
		return nil, fmt.Errorf("evaluate fetch in browser: %w", err)
	}

	return []byte(body), nil
}

func (t *BrowserTransport) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(t.userAgent),
	)
	if t.execPath != "" {
		opts = append(opts, chromedp.ExecPath(t.execPath))
	}
	return opts
}

func (t *BrowserTransport) actions(script string, body *string) []chromedp.Action {
	actions := make([]chromedp.Action, 0, 2)
	if t.originURL != "" {
		actions = append(actions, chromedp.Navigate(t.originURL))
	}
	actions = append(actions, chromedp.Evaluate(script, body, awaitPromise))
	return actions
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// fetchScript builds the page-side fetch; a non-2xx response throws.
func fetchScript(url string) (string, error) {
	quoted, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(url)
	if err != nil {
		return "", fmt.Errorf("quote url: %w", err)
	}

	return fmt.Sprintf(`(async () => {
  const res = await fetch(%s, { headers: { "Accept": "application/json" } });
  if (!res.ok) throw new Error("Failed to fetch API: status " + res.status);
  return await res.text();
})()`, quoted), nil
}
