package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ajitpratap0/mongobridge/pkg/config"
	"github.com/ajitpratap0/mongobridge/pkg/connector/base"
	"github.com/ajitpratap0/mongobridge/pkg/mongodb"
	"github.com/ajitpratap0/mongobridge/pkg/testutil"
)

type roundTripSuite struct {
	testutil.MongoSuite
	client *mongodb.Client
	cfg    *config.Config
}

func TestRoundTripIntegration(t *testing.T) {
	suite.Run(t, &roundTripSuite{MongoSuite: testutil.MongoSuite{URI: testutil.MongoURI(t)}})
}

func (s *roundTripSuite) SetupSuite() {
	s.MongoSuite.SetupSuite()

	s.cfg = config.Default()
	s.cfg.Connection.URI = s.URI
	s.cfg.Connection.Database = s.DB.Name()
	s.cfg.Retry = *base.NoRetryPolicy()

	client, err := mongodb.Connect(s.Context(), s.cfg.Connection, &s.cfg.Retry, testutil.TestLogger(s.T()))
	s.Require().NoError(err)
	s.client = client
}

func (s *roundTripSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close(s.Context())
	}
	s.MongoSuite.TearDownSuite()
}

func (s *roundTripSuite) TestExtractThenLoad() {
	s.Seed("orders",
		bson.D{{Key: "sku", Value: "a-1"}, {Key: "qty", Value: int32(3)}, {Key: "at", Value: day}},
		bson.D{{Key: "sku", Value: "b-22"}, {Key: "qty", Value: int32(5)}, {Key: "at", Value: day.AddDate(0, 0, -1)}},
	)

	cfg := *s.cfg
	cfg.Source.Collection = "orders"
	cfg.Output.Path = filepath.Join(s.TempDir(), "orders.csv.zst")
	cfg.Output.Compression = "zstd"
	cfg.Destination.Collection = "orders_copy"
	cfg.Destination.Input = cfg.Output.Path
	cfg.Destination.Columns = []config.ColumnConfig{
		{Name: "sku", Type: "wstr"},
		{Name: "qty", Type: "i4"},
	}
	p := New(&cfg, FromClient(s.client), testutil.TestLogger(s.T()))

	names, err := p.Collections(s.Context())
	s.Require().NoError(err)
	s.Contains(names, "orders")

	ex, err := p.Extract(s.Context())
	s.Require().NoError(err)
	s.Equal(int64(2), ex.Stats.Committed)

	ld, err := p.Load(s.Context())
	s.Require().NoError(err)
	s.Equal(int64(2), ld.Inserted)
	s.Equal(int64(2), s.Count("orders_copy"))
}
