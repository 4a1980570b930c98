package mongodb

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/connector/base"
	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
)

const appName = "mongobridge"

// Client is a connected database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	settings Settings
	logger   *zap.Logger
}

// Connect opens a client for s and pings it under rp. A nil rp uses the default policy.
func Connect(ctx context.Context, s Settings, rp *base.RetryPolicy, l *zap.Logger) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if rp == nil {
		rp = base.DefaultRetryPolicy()
	}
	if l == nil {
		l = logger.Component("mongodb")
	}

	opts := options.Client().ApplyURI(s.ConnectionString()).SetAppName(appName)
	if s.ConnectTimeout > 0 {
		opts.SetConnectTimeout(s.ConnectTimeout)
		opts.SetServerSelectionTimeout(s.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection settings").
			WithDetail("uri", s.Redacted())
	}

	err = rp.Execute(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			l.Warn("ping failed", zap.String("uri", s.Redacted()), zap.Error(err))
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach server")
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	l.Info("connected", zap.String("uri", s.Redacted()), zap.String("database", s.Database))
	return &Client{
		client:   client,
		database: client.Database(s.Database),
		settings: s,
		logger:   l,
	}, nil
}

// Collection returns the named collection.
func (c *Client) Collection(name string) *Collection {
	return &Collection{coll: c.database.Collection(name)}
}

// CollectionNames lists the database's collections, without system collections, sorted.
func (c *Client) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := c.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to list collections")
	}
	return UserCollections(names), nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to disconnect")
	}
	return nil
}

// UserCollections drops names starting with "system" and sorts the rest.
func UserCollections(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, "system") {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Collection adapts a driver collection to core.Collection.
type Collection struct {
	coll *mongo.Collection
}

var _ core.Collection = (*Collection)(nil)

// Name implements core.Collection.
func (c *Collection) Name() string { return c.coll.Name() }

// Count implements core.Collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.coll.CountDocuments(ctx, bson.D{})
}

// Find implements core.Collection.
func (c *Collection) Find(ctx context.Context, filter interface{}, opts core.FindOptions) (core.Cursor, error) {
	if filter == nil {
		filter = bson.D{}
	}
	fo := options.Find()
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	cur, err := c.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	return &Cursor{cur: cur}, nil
}

// FindOne implements core.Collection.
func (c *Collection) FindOne(ctx context.Context, filter interface{}) (bson.Raw, error) {
	doc, err := c.coll.FindOne(ctx, filter).Raw()
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrNoDocuments
	}
	return doc, err
}

// InsertMany implements core.Collection.
func (c *Collection) InsertMany(ctx context.Context, docs []interface{}) error {
	_, err := c.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// Cursor adapts a driver cursor to core.Cursor.
type Cursor struct {
	cur *mongo.Cursor
}

// Next implements core.Cursor.
func (c *Cursor) Next(ctx context.Context) bool { return c.cur.Next(ctx) }

// Current implements core.Cursor.
func (c *Cursor) Current() bson.Raw { return c.cur.Current }

// Err implements core.Cursor.
func (c *Cursor) Err() error { return c.cur.Err() }

// Close implements core.Cursor.
func (c *Cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
