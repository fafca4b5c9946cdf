package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes caps how much of each response is read
const maxBodyBytes = 1 << 20

// Result is the outcome of fetching one URL. Status is zero when no response
// was received.
type Result struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Body   any    `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether a JSON body was received
func (r Result) OK() bool {
	return r.Error == ""
}

// Client issues GET requests to many URLs at once with bounded concurrency.
// It is built once at startup and closed at shutdown.
type Client struct {
	http   *http.Client
	limit  int
	logger *zap.Logger

	allowedHosts map[string]bool
	allowPrivate bool
}

// Option configures a Client
type Option func(*Client)

// WithAllowedHosts restricts fetches to the listed host names. An empty list
// allows any host.
func WithAllowedHosts(hosts []string) Option {
	return func(c *Client) {
		c.allowedHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				c.allowedHosts[h] = true
			}
		}
	}
}

// WithPrivateNetworks lets the client connect to loopback, private and
// link-local addresses. They are refused by default.
func WithPrivateNetworks(allowed bool) Option {
	return func(c *Client) {
		c.allowPrivate = allowed
	}
}

// NewClient creates a fan-out client. limit bounds in-flight requests across a
// single Gather call.
func NewClient(timeout time.Duration, limit int, log *zap.Logger, opts ...Option) *Client {
	if limit <= 0 {
		limit = 1
	}
	c := &Client{
		limit:  limit,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if !c.allowPrivate {
		dialer.Control = refusePrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	// A proxy would be the only address the dialer sees
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	c.http = &http.Client{Timeout: timeout, Transport: transport}
	return c
}

// refusePrivate runs after name resolution, so a public name that resolves to
// an internal address is refused too.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return fmt.Errorf("address %s is not allowed", addr)
	}
	return nil
}

// Fetch GETs rawURL and decodes its body as JSON. Failures are reported in
// the Result, never as a panic or error return.
func (c *Client) Fetch(ctx context.Context, rawURL string) Result {
	result := Result{URL: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.Error = fmt.Sprintf("unsupported URL %q", rawURL)
		return result
	}
	if len(c.allowedHosts) > 0 && !c.allowedHosts[strings.ToLower(u.Hostname())] {
		c.logger.Warn("Host not allowed", zap.String("url", rawURL))
		result.Error = fmt.Sprintf("host %q is not allowed", u.Hostname())
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Error fetching URL", zap.String("url", rawURL), zap.Error(err))
		result.Error = fmt.Sprintf("error fetching from URL %s: %v", rawURL, err)
		return result
	}
	defer resp.Body.Close()
	result.Status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Error = fmt.Sprintf("failed to read body: %v", err)
		return result
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Warn("Response is not JSON", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		result.Body = string(raw)
		result.Error = "response is not JSON"
		return result
	}

	c.logger.Info("Called URL", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
	result.Body = body
	return result
}

// Gather fetches every URL concurrently and returns the results in input
// order. One failing URL does not affect the others.
func (c *Client) Gather(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = c.Fetch(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Close releases idle connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
	c.logger.Info("Fan-out client closed")
}
