package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

type AsyncNetworkManager struct {
	Config       models.MNetworkConfig
	ProxyManager interfaces.IProxyManager
	Limiter      *rate.Limiter // nil = unlimited
	Logger       *logger.Logger

	mu     sync.RWMutex
	client *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg models.MNetworkConfig, log *logger.Logger) *AsyncNetworkManager {
	var proxies []string
	if cfg.Enabled {
		proxies = cfg.Proxies
	}

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.UserAgent),
		Logger:       log,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		nm.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
				nm.Logger.Info("Using proxy: %s", helpers.RedactProxy(proxyStr))
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()
	nm.mu.Lock()
	nm.client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) currentClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// BuildURL appends params to urlStr as a query string.
func BuildURL(urlStr string, params map[string]string) (string, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	return reqURL.String(), nil
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and proxy rotation.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	finalURL, err := BuildURL(urlStr, params)
	if err != nil {
		return nil, helpers.NewNetworkError("invalid url "+urlStr, 0, err)
	}

	maxRetries := nm.Config.MaxRetries
	backoff := time.Duration(nm.Config.BackoffMillis) * time.Millisecond
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Quadratic backoff: 1x, 4x, 9x ...
			if err := helpers.Sleep(ctx, time.Duration(i*i)*backoff); err != nil {
				return nil, err
			}
			nm.rotateProxy()
		}

		body, err := nm.do(ctx, finalURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !helpers.IsRetryable(err) {
			return nil, err
		}
		nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) ([]byte, error) {
	if nm.Limiter != nil {
		if err := nm.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, helpers.NewNetworkError("build request", 0, err)
	}
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := nm.currentClient().Do(req)
	if err != nil {
		return nil, helpers.NewNetworkError("GET "+redactQuery(finalURL), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, helpers.NewNetworkError(
			fmt.Sprintf("GET %s: bad status %d", redactQuery(finalURL), resp.StatusCode),
			resp.StatusCode,
			fmt.Errorf("%s", string(snippet)),
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, helpers.NewNetworkError("read body", 0, err)
	}
	return body, nil
}

// -----------------------------------------------------------------------------

func redactQuery(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path
}
