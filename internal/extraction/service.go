package extraction

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/qdiabetes"
	"github.com/riskcalc/platform/internal/shared/metrics"
)

// maxTranscriptLength bounds what is sent upstream, in bytes.
const maxTranscriptLength = 20000

// Service fronts an Extractor with a result cache.
type Service struct {
	extractor Extractor
	cache     Cache
	ttl       time.Duration
	logger    *zap.Logger
}

// NewService creates an extraction service. cache may be nil.
func NewService(extractor Extractor, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{extractor: extractor, cache: cache, ttl: ttl, logger: logger}
}

// Extract returns the variables stated in transcript. Cached results are
// reused; cache failures are logged and otherwise ignored.
func (s *Service) Extract(ctx context.Context, transcript string) (qdiabetes.PartialInput, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return qdiabetes.PartialInput{}, ErrEmptyTranscript
	}
	transcript = truncate(transcript, maxTranscriptLength)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, transcript)
		switch {
		case err == nil:
			metrics.RecordExtractionCache(true)
			return cached, nil
		case errors.Is(err, ErrCacheMiss):
			metrics.RecordExtractionCache(false)
		default:
			s.logger.Warn("extraction cache read failed", zap.Error(err))
		}
	}

	if s.extractor == nil {
		return qdiabetes.PartialInput{}, ErrNotConfigured
	}

	start := time.Now()
	variables, err := s.extractor.Extract(ctx, transcript)
	metrics.RecordExtraction(outcome(err), time.Since(start))
	if err != nil {
		s.logger.Warn("extraction failed", zap.Error(err), zap.Int("transcript_length", len(transcript)))
		return qdiabetes.PartialInput{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, transcript, variables, s.ttl); err != nil {
			s.logger.Warn("extraction cache write failed", zap.Error(err))
		}
	}
	return variables, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, ErrNoVariables):
		return "no_variables"
	default:
		return "error"
	}
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
