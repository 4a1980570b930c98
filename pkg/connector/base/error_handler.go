package base

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
)

// ErrorHandler classifies store failures for retry and keeps per-category counts.
type ErrorHandler struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		counts: make(map[string]int64),
	}
}

// transient driver failures that are not surfaced as typed network errors
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"server selection",
	"i/o timeout",
	"not primary",
	"node is recovering",
}

// ShouldRetry reports whether err is worth another attempt. Cancellation,
// configuration and data errors never are.
func (eh *ErrorHandler) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if errors.IsRetryable(err) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	switch {
	case errors.IsType(err, errors.ErrorTypeConfig),
		errors.IsType(err, errors.ErrorTypeData),
		errors.IsType(err, errors.ErrorTypeNotFound),
		errors.IsType(err, errors.ErrorTypeUnsupportedType):
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Record counts err under its category and logs it.
func (eh *ErrorHandler) Record(op string, attempt int, err error) {
	category := eh.categorize(err)
	eh.mu.Lock()
	eh.counts[category]++
	eh.mu.Unlock()

	eh.logger.Warn("operation failed",
		zap.String("operation", op),
		zap.Int("attempt", attempt),
		zap.String("category", category),
		zap.Bool("retryable", eh.ShouldRetry(err)),
		zap.Error(err))
}

// Stats returns the failure counts per category.
func (eh *ErrorHandler) Stats() map[string]int64 {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	out := make(map[string]int64, len(eh.counts))
	for k, v := range eh.counts {
		out[k] = v
	}
	return out
}

func (eh *ErrorHandler) categorize(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return string(e.Type)
	}
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case mongo.IsTimeout(err):
		return "timeout"
	case mongo.IsNetworkError(err):
		return string(errors.ErrorTypeConnection)
	}
	return "unknown"
}
