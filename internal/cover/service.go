package cover

import (
	"context"

	"go.uber.org/zap"

	"covercraft/internal/models"
)

// Service produces covers with the fallback policy: the requested platform first,
// one retry on models.DefaultPlatform, then StaticURL. It never fails.
type Service struct {
	producer Producer
	logger   *zap.Logger
}

// NewService wraps a producer with the fallback policy.
func NewService(producer Producer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{producer: producer, logger: logger}
}

// Produce always returns a usable image reference.
func (s *Service) Produce(ctx context.Context, req models.CoverRequest) models.CoverResult {
	url, err := s.attempt(ctx, req)
	if err == nil {
		return models.CoverResult{ImageURL: url, Platform: req.Platform}
	}
	s.logger.Warn("Cover production failed, retrying with default platform",
		zap.Error(err),
		zap.String("platform", string(req.Platform)),
		zap.String("title", req.Title),
	)

	retry := req
	retry.Platform = models.DefaultPlatform
	url, err = s.attempt(ctx, retry)
	if err == nil {
		return models.CoverResult{ImageURL: url, Platform: retry.Platform, UsedFallback: true}
	}
	s.logger.Error("Cover production failed on default platform, using static placeholder",
		zap.Error(err),
		zap.String("title", req.Title),
	)

	return models.CoverResult{
		ImageURL:     StaticURL(req.Title, models.DefaultPlatform),
		Platform:     models.DefaultPlatform,
		UsedFallback: true,
	}
}

// attempt runs the producer, converting panics into errors
func (s *Service) attempt(ctx context.Context, req models.CoverRequest) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic in cover producer", zap.Any("panic", r))
			url, err = "", ErrMalformedResponse
		}
	}()
	if s.producer == nil {
		return "", ErrNoProducers
	}
	url, err = s.producer.Produce(ctx, req)
	if err == nil && url == "" {
		err = ErrMalformedResponse
	}
	return url, err
}
