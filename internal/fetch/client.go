// Package fetch provides the outbound clients that collect wallet holdings,
// contract verification and DEX market data from public APIs.
//
// Every client here fails open to absence: an upstream error becomes a
// missing value, never an error that reaches the risk engine.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/wallet-risk-ea/internal/circuitbreaker"
)

// Upstream names, used for breakers, logs and metric labels
const (
	SourceExplorer    = "explorer"
	SourceDexScreener = "dexscreener"
)

// FailureHook is notified whenever an upstream lookup fails
type FailureHook func(source string, err error)

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}

// newLimiter returns an outbound limiter for rps requests per second.
// A non-positive rps disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// upstream bundles what every outbound client needs to issue a GET
type upstream struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	onFailure  FailureHook
}

// guard runs fn behind the upstream's circuit breaker, if any. A failure
// after ctx has ended is the caller's doing and is marked ErrCallerAborted,
// so it never trips the breaker shared with other callers.
func (u *upstream) guard(ctx context.Context, fn func() error) error {
	call := func() error {
		err := fn()
		if err != nil && ctx.Err() != nil && !errors.Is(err, circuitbreaker.ErrCallerAborted) {
			err = fmt.Errorf("%w: %w", circuitbreaker.ErrCallerAborted, err)
		}
		return err
	}
	if u.breaker == nil {
		return call()
	}
	return u.breaker.Execute(call)
}

// failed logs and reports an upstream failure. Aborted calls are logged at
// debug level and not reported.
func (u *upstream) failed(err error, fields logrus.Fields) {
	entry := logrus.WithFields(fields).WithField("source", u.name)
	if errors.Is(err, circuitbreaker.ErrCallerAborted) {
		entry.Debugf("Upstream lookup abandoned: %v", err)
		return
	}
	entry.Warnf("Upstream lookup failed: %v", err)
	if u.onFailure != nil {
		u.onFailure(u.name, err)
	}
}

// getJSON waits for the limiter, issues a GET and decodes a 200 response into out
func (u *upstream) getJSON(ctx context.Context, url string, out any) error {
	// Wait fails only on account of ctx, including a deadline too close to wait for
	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w: %w", circuitbreaker.ErrCallerAborted, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching data from %s: %w", u.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API error: status %d, body: %s", u.name, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", u.name, err)
	}
	return nil
}
