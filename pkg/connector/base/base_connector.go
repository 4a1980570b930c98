// Package base provides the BaseConnector the MongoDB source and destination
// embed: identity, a component logger, a retry policy for store calls and
// row progress reporting.
//
// # Usage
//
//	type Source struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
//	func NewSource() *Source {
//	    return &Source{
//	        BaseConnector: base.NewBaseConnector("mongodb", core.ConnectorTypeSource, "1.0.0"),
//	    }
//	}
package base

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
)

// BaseConnector carries what every connector shares.
type BaseConnector struct {
	name          string
	connectorType core.ConnectorType
	version       string
	logger        *zap.Logger
	retryPolicy   *RetryPolicy
	errors        *ErrorHandler
	progress      *ProgressReporter
}

// NewBaseConnector creates a new base connector with the specified name, type, and version.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string) *BaseConnector {
	l := logger.Get().With(zap.String("connector", name), zap.String("type", string(connectorType)))
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		logger:        l,
		retryPolicy:   DefaultRetryPolicy(),
		errors:        NewErrorHandler(l),
		progress:      NewProgressReporter(l, 0),
	}
}

// Name returns the connector name
func (bc *BaseConnector) Name() string { return bc.name }

// Type returns the connector type
func (bc *BaseConnector) Type() core.ConnectorType { return bc.connectorType }

// Version returns the connector version
func (bc *BaseConnector) Version() string { return bc.version }

// Logger returns the connector logger
func (bc *BaseConnector) Logger() *zap.Logger { return bc.logger }

// SetLogger replaces the connector logger
func (bc *BaseConnector) SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	bc.logger = l
	bc.errors.logger = l
	bc.progress.logger = l
}

// SetRetryPolicy replaces the retry policy
func (bc *BaseConnector) SetRetryPolicy(rp *RetryPolicy) {
	if rp != nil {
		bc.retryPolicy = rp
	}
}

// Progress returns the connector's progress reporter
func (bc *BaseConnector) Progress() *ProgressReporter { return bc.progress }

// ErrorStats returns the failure counts per error category.
func (bc *BaseConnector) ErrorStats() map[string]int64 { return bc.errors.Stats() }

// ExecuteWithRetry runs fn under the connector's retry policy, recording each
// failure. Transient driver errors are retried as well as connection errors.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return bc.retryPolicy.ExecuteWithCondition(ctx, func() error {
		attempt++
		err := fn()
		if err != nil {
			bc.errors.Record(op, attempt, err)
		}
		return err
	}, bc.errors.ShouldRetry)
}
