package gm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

const (
	DefaultTimeout = 60 * time.Second
	DefaultRetries = 2
)

// ClientConfig tunes a Client. A zero Timeout or a negative Retries
// selects the default.
type ClientConfig struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first.
	Retries int
	// NewBackOff builds the wait policy between attempts.
	NewBackOff func() backoff.BackOff
}

// Client turns a Provider into validated scenes and resolutions.
type Client struct {
	provider   Provider
	timeout    time.Duration
	retries    int
	newBackOff func() backoff.BackOff
}

func NewClient(p Provider, cfg ClientConfig) *Client {
	c := &Client{
		provider:   p,
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		newBackOff: cfg.NewBackOff,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retries < 0 {
		c.retries = DefaultRetries
	}
	if c.newBackOff == nil {
		c.newBackOff = DefaultBackOff
	}
	return c
}

// DefaultBackOff waits 1s, 2s, 4s, then 6s between attempts.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 6 * time.Second
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// GenerateScene asks for a fresh scene for st.
func (c *Client) GenerateScene(ctx context.Context, st *models.GameState) (models.Scene, error) {
	system, err := renderSystem(st)
	if err != nil {
		return models.Scene{}, err
	}
	prompt, err := renderScene(st)
	if err != nil {
		return models.Scene{}, err
	}
	req := Request{Kind: KindScene, System: system, Prompt: prompt}
	return roundTrip(ctx, c, req, ParseScene)
}

// GenerateResolution asks for the narrated consequence of choice.
func (c *Client) GenerateResolution(ctx context.Context, st *models.GameState, choice models.Choice, roll int, band dice.Band) (models.Resolution, error) {
	system, err := renderSystem(st)
	if err != nil {
		return models.Resolution{}, err
	}
	prompt, err := renderResolution(st, choice, roll, band)
	if err != nil {
		return models.Resolution{}, err
	}
	req := Request{Kind: KindResolution, System: system, Prompt: prompt}
	return roundTrip(ctx, c, req, ParseResolution)
}

// roundTrip calls the provider and parses its reply. Transport failures
// and malformed replies share one attempt budget.
func roundTrip[T any](ctx context.Context, c *Client, req Request, parse func(string) (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var zero T
		text, err := c.provider.Complete(actx, req)
		if err != nil {
			return zero, err
		}
		return parse(text)
	}
	notify := func(err error, wait time.Duration) {
		logging.Warn("generation attempt failed", err, logging.Fields{
			"kind":    string(req.Kind),
			"attempt": attempt,
			"wait":    wait.String(),
		})
	}

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s after %d attempts: %w", ErrGenerationUnavailable, req.Kind, attempt, err)
	}
	return v, nil
}
