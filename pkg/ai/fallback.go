package ai

import (
	"context"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackClassifier routes classification across providers:
// Gemini first for quality, Ollama when Gemini is out of quota or failing.
type FallbackClassifier struct {
	gemini Classifier
	ollama Classifier
	logger *zap.Logger
}

func NewFallbackClassifier(gemini, ollama Classifier, logger *zap.Logger) *FallbackClassifier {
	return &FallbackClassifier{
		gemini: gemini,
		ollama: ollama,
		logger: logger.Named("ai"),
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(net.Error); ok {
		return true
	}
	return containsAny(err.Error(),
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"EOF",
	)
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(),
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"RESOURCE_EXHAUSTED",
	)
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

func (f *FallbackClassifier) Classify(ctx context.Context, emailText string) (*Classification, error) {
	if f.gemini != nil {
		result, err := f.gemini.Classify(ctx, emailText)
		if err == nil {
			return result, nil
		}
		if isQuotaError(err) {
			f.logger.Warn("gemini quota exhausted, falling back to ollama", zap.Error(err))
		} else {
			f.logger.Warn("gemini classification failed, falling back to ollama", zap.Error(err))
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.Classify(ctx, emailText)
		if err == nil {
			return result, nil
		}
		if isConnectionError(err) && f.gemini != nil {
			f.logger.Warn("ollama unreachable, retrying gemini", zap.Error(err))
			return f.gemini.Classify(ctx, emailText)
		}
		return nil, fmt.Errorf("ollama classification failed: %w", err)
	}

	return nil, fmt.Errorf("no AI provider available for classification")
}
