package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoURIEnv names the server integration tests run against.
const MongoURIEnv = "MONGOBRIDGE_TEST_URI"

// MongoURI returns the integration server URI, skipping t when none is set
// or when running with -short.
func MongoURI(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set", MongoURIEnv)
	}
	return uri
}

// MongoSuite is a testify suite backed by a live MongoDB. Each suite works in
// a database of its own, dropped at teardown.
//
//	func TestRoundTrip(t *testing.T) {
//	    suite.Run(t, &roundTripSuite{MongoSuite: testutil.MongoSuite{URI: testutil.MongoURI(t)}})
//	}
type MongoSuite struct {
	suite.Suite

	URI string
	DB  *mongo.Database

	client  *mongo.Client
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// SetupSuite connects and creates the suite database handle.
func (s *MongoSuite) SetupSuite() {
	require.NotEmpty(s.T(), s.URI, "MongoSuite.URI must be set")
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	client, err := mongo.Connect(s.ctx, options.Client().
		ApplyURI(s.URI).
		SetServerSelectionTimeout(5*time.Second))
	require.NoError(s.T(), err)
	require.NoError(s.T(), client.Ping(s.ctx, nil))
	s.client = client
	s.DB = client.Database(fmt.Sprintf("mongobridge_test_%d", time.Now().UnixNano()))

	s.tempDir, err = os.MkdirTemp("", "mongobridge-test-*")
	require.NoError(s.T(), err)
}

// TearDownSuite drops the suite database and disconnects.
func (s *MongoSuite) TearDownSuite() {
	if s.DB != nil {
		if err := s.DB.Drop(context.Background()); err != nil {
			s.T().Logf("failed to drop %s: %v", s.DB.Name(), err)
		}
	}
	if s.client != nil {
		_ = s.client.Disconnect(context.Background())
	}
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Context returns the suite context.
func (s *MongoSuite) Context() context.Context { return s.ctx }

// TempDir returns a directory removed at teardown.
func (s *MongoSuite) TempDir() string { return s.tempDir }

// Seed inserts docs into collection.
func (s *MongoSuite) Seed(collection string, docs ...interface{}) {
	_, err := s.DB.Collection(collection).InsertMany(s.ctx, docs)
	require.NoError(s.T(), err)
}

// Count returns the number of documents in collection.
func (s *MongoSuite) Count(collection string) int64 {
	n, err := s.DB.Collection(collection).CountDocuments(s.ctx, map[string]interface{}{})
	require.NoError(s.T(), err)
	return n
}
