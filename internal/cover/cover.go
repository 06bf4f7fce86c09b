// Package cover produces cover image references for a title and platform.
//
// Producers are composable: Placeholder builds a deterministic placeholder-image URL,
// Generative asks an external image backend, Verified gates any producer behind a
// reachability check, and Chain tries producers in order. Service applies the
// retry-with-default-platform policy on top and always yields a result.
package cover

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"covercraft/internal/models"
)

var (
	// ErrEmptyTitle is returned for requests without a usable title
	ErrEmptyTitle = errors.New("cover: title is required")
	// ErrMalformedResponse is returned when a backend answers without an image reference
	ErrMalformedResponse = errors.New("cover: malformed response")
	// ErrNoProducers is returned by an empty Chain
	ErrNoProducers = errors.New("cover: no producers configured")
)

// Producer returns an image URL for a cover request.
type Producer interface {
	Produce(ctx context.Context, req models.CoverRequest) (string, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, req models.CoverRequest) (string, error)

func (f ProducerFunc) Produce(ctx context.Context, req models.CoverRequest) (string, error) {
	return f(ctx, req)
}

// Chain tries each producer in order and returns the first success.
func Chain(producers ...Producer) Producer {
	return chain(producers)
}

type chain []Producer

func (c chain) Produce(ctx context.Context, req models.CoverRequest) (string, error) {
	if len(c) == 0 {
		return "", ErrNoProducers
	}

	var errs []error
	for _, p := range c {
		url, err := p.Produce(ctx, req)
		if err == nil {
			return url, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("cover: all producers failed: %w", errors.Join(errs...))
}

func validate(req models.CoverRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}
