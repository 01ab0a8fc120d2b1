package generative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maxaizer/autoapply/internal/logger"
	"github.com/maxaizer/autoapply/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// ErrUnavailable is returned when no provider produced text.
var ErrUnavailable = errors.New("no generative provider available")

type Generator interface {
	Generate(ctx context.Context, prompt, systemContext string) (string, error)
}

type Provider interface {
	Generator
	Name() string
}

// Chain tries providers in order and returns the first non-empty response.
type Chain struct {
	providers      []Provider
	attemptTimeout time.Duration
}

func NewChain(attemptTimeout time.Duration, providers ...Provider) *Chain {
	return &Chain{providers: providers, attemptTimeout: attemptTimeout}
}

func (c *Chain) Len() int {
	return len(c.providers)
}

func (c *Chain) Generate(ctx context.Context, prompt, systemContext string) (string, error) {
	var errs []error

	for _, provider := range c.providers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		text, err := c.attempt(ctx, provider, prompt, systemContext)
		if err == nil && strings.TrimSpace(text) != "" {
			metrics.GenerativeCallsCounter.WithLabelValues(provider.Name(), "ok").Inc()
			return text, nil
		}

		if err == nil {
			err = fmt.Errorf("%s returned empty text", provider.Name())
			metrics.GenerativeCallsCounter.WithLabelValues(provider.Name(), "empty").Inc()
		} else {
			metrics.GenerativeCallsCounter.WithLabelValues(provider.Name(), "error").Inc()
		}

		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
			WithField("provider", provider.Name()).
			Warnf("generative provider failed, trying next: %v", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return "", ErrUnavailable
	}
	return "", fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func (c *Chain) attempt(ctx context.Context, provider Provider, prompt, systemContext string) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return provider.Generate(ctx, prompt, systemContext)
}
