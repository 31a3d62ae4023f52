package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackService implements provider routing with fallback:
// the primary provider drafts first, the secondary takes over on any error
type FallbackService struct {
	primary   DraftGenerator
	secondary DraftGenerator
	log       *zap.SugaredLogger
}

// NewFallbackService creates a new fallback service; either provider may be nil
func NewFallbackService(primary, secondary DraftGenerator, log *zap.SugaredLogger) *FallbackService {
	return &FallbackService{
		primary:   primary,
		secondary: secondary,
		log:       log,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{"connection refused", "no such host", "network is unreachable", "connection reset", "timeout", "dial tcp", "eof"} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{"429", "quota", "rate limit", "too many requests", "resource exhausted", "resource_exhausted"} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// GenerateDraft tries the primary provider, then the secondary
func (f *FallbackService) GenerateDraft(ctx context.Context, req DraftRequest) (string, error) {
	if f.primary != nil {
		draft, err := f.primary.GenerateDraft(ctx, req)
		if err == nil {
			return draft, nil
		}

		switch {
		case isQuotaError(err):
			f.log.Warnw("Primary AI provider quota exhausted, falling back", "error", err)
		case isConnectionError(err):
			f.log.Warnw("Primary AI provider unreachable, falling back", "error", err)
		default:
			f.log.Warnw("Primary AI provider failed, falling back", "error", err)
		}
		if f.secondary == nil {
			return "", fmt.Errorf("draft generation failed: %w", err)
		}
	}

	if f.secondary != nil {
		draft, err := f.secondary.GenerateDraft(ctx, req)
		if err != nil {
			return "", fmt.Errorf("fallback draft generation failed: %w", err)
		}
		return draft, nil
	}

	return "", fmt.Errorf("no AI provider available for draft generation")
}
