package cover

import (
	"context"
	"fmt"
	"net/http"

	"covercraft/internal/httpx"
	"covercraft/internal/models"
)

// Checker checks that an image URL is reachable.
type Checker interface {
	Check(ctx context.Context, url string) error
}

// HTTPChecker checks with a HEAD request and accepts any 2xx answer.
type HTTPChecker struct {
	Client *http.Client
}

func (p HTTPChecker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("cover: build request: %w", err)
	}
	res, err := httpx.Client(p.Client).Do(req)
	if err != nil {
		return fmt.Errorf("cover: check %s: %w", url, err)
	}
	_ = res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &httpx.HTTPStatusError{StatusCode: res.StatusCode, URL: url}
	}
	return nil
}

// Verified wraps a producer so that only reachable URLs count as success.
func Verified(p Producer, checker Checker) Producer {
	return ProducerFunc(func(ctx context.Context, req models.CoverRequest) (string, error) {
		url, err := p.Produce(ctx, req)
		if err != nil {
			return "", err
		}
		if err := checker.Check(ctx, url); err != nil {
			return "", err
		}
		return url, nil
	})
}
