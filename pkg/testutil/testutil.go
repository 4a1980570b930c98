// Package testutil provides testing utilities for mongobridge
package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout, cancelled at cleanup.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MustRaw marshals doc into a raw document, failing the test on error.
func MustRaw(t *testing.T, doc interface{}) bson.Raw {
	t.Helper()
	b, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal %v: %v", doc, err)
	}
	return bson.Raw(b)
}

// RawValue returns v as a document value, failing the test on error.
func RawValue(t *testing.T, v interface{}) bson.RawValue {
	t.Helper()
	return MustRaw(t, bson.D{{Key: "v", Value: v}}).Lookup("v")
}
