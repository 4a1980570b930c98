package schema

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/connector/core"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
	"github.com/ajitpratap0/mongobridge/pkg/testutil"
)

func names(cols []tabular.ColumnSchema) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestInferFirstSeenOrderAndTypes(t *testing.T) {
	coll := testutil.NewCollection("people",
		bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "ann"}, {Key: "age", Value: int32(30)}},
		bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "joined", Value: primitive.NewDateTimeFromTime(time.Now())}, {Key: "name", Value: "bob"}},
		bson.D{{Key: "score", Value: 1.5}, {Key: "active", Value: true}},
	)

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "joined", "score", "active"}, names(res.Columns))
	want := map[string]tabular.DataType{
		"name": tabular.TypeString, "age": tabular.TypeI8, "joined": tabular.TypeDate,
		"score": tabular.TypeR8, "active": tabular.TypeBool,
	}
	for _, c := range res.Columns {
		assert.Equal(t, want[c.Name], c.Type, c.Name)
	}
	assert.Equal(t, names(res.Columns), names(res.ErrorColumns))
	assert.Equal(t, 3, res.Sampled)
}

func TestInferSingleDocument(t *testing.T) {
	coll := testutil.NewCollection("c", bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}, {Key: "c", Value: 2.5}})

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{})
	require.NoError(t, err)
	require.Len(t, res.Columns, 3)
	assert.Equal(t, tabular.TypeI8, res.Columns[0].Type)
	assert.Equal(t, tabular.TypeString, res.Columns[1].Type)
	assert.Equal(t, 256, res.Columns[1].Length)
	assert.Equal(t, 1252, res.Columns[1].CodePage)
	assert.Equal(t, tabular.TypeR8, res.Columns[2].Type)
}

func TestInferUsesNonNullRepresentative(t *testing.T) {
	coll := testutil.NewCollection("c",
		bson.D{{Key: "f", Value: nil}},
		bson.D{{Key: "f", Value: int32(3)}},
	)

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{Size: 1})
	require.NoError(t, err)
	require.Len(t, res.Columns, 1)
	assert.Equal(t, tabular.TypeI8, res.Columns[0].Type)
}

func TestInferDropsAlwaysNullField(t *testing.T) {
	coll := testutil.NewCollection("c",
		bson.D{{Key: "f", Value: nil}, {Key: "g", Value: "x"}},
		bson.D{{Key: "f", Value: nil}},
	)

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, names(res.Columns))
	assert.Equal(t, []string{"f"}, res.Dropped)
}

func TestInferIDOnlyCollection(t *testing.T) {
	coll := testutil.NewCollection("c", bson.D{{Key: "_id", Value: primitive.NewObjectID()}})

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.ErrorColumns)
}

func TestInferEmptyCollection(t *testing.T) {
	_, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), testutil.NewCollection("empty"), SampleOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestInferSampleBounds(t *testing.T) {
	coll := testutil.NewCollection("c",
		bson.D{{Key: "first", Value: 1}},
		bson.D{{Key: "second", Value: 1}},
		bson.D{{Key: "third", Value: 1}},
	)

	res, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{Size: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, names(res.Columns))
	require.NotEmpty(t, coll.Finds)
	assert.Equal(t, core.FindOptions{Limit: 1, Skip: 1}, coll.Finds[0].Opts)
}

func TestInferDefaultSampleSize(t *testing.T) {
	coll := testutil.NewCollection("c", bson.D{{Key: "a", Value: 1}})
	_, err := NewInferrer(testutil.TestLogger(t)).Infer(testutil.TestContext(t), coll, SampleOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultSampleSize), coll.Finds[0].Opts.Limit)
}

func TestReinferenceKeepsSentinels(t *testing.T) {
	meta := tabular.NewMetadata()
	inferrer := NewInferrer(testutil.TestLogger(t))

	res, err := inferrer.Infer(testutil.TestContext(t), testutil.NewCollection("c", bson.D{{Key: "a", Value: 1}}), SampleOptions{})
	require.NoError(t, err)
	res.Apply(meta)

	res, err = inferrer.Infer(testutil.TestContext(t), testutil.NewCollection("c", bson.D{{Key: "b", Value: "x"}}), SampleOptions{})
	require.NoError(t, err)
	res.Apply(meta)

	assert.Equal(t, []string{"b"}, names(meta.Output))
	assert.Equal(t, []string{tabular.ErrorCodeColumn, tabular.ErrorColumnColumn, "b"}, names(meta.ErrorOutput))
}

func TestRegistryVersionsAndPersistence(t *testing.T) {
	r := NewRegistry(testutil.TestLogger(t))

	meta := tabular.NewMetadata()
	meta.ReplaceColumns([]tabular.ColumnSchema{{Name: "a", Type: tabular.TypeI8}})

	v1, created := r.Register("orders", meta)
	require.True(t, created)
	assert.Equal(t, 1, v1.Version)

	same, created := r.Register("orders", meta)
	assert.False(t, created)
	assert.Equal(t, 1, same.Version)

	meta2 := tabular.NewMetadata()
	meta2.ReplaceColumns([]tabular.ColumnSchema{{Name: "a", Type: tabular.TypeR8}})
	v2, created := r.Register("orders", meta2)
	require.True(t, created)
	assert.Equal(t, 2, v2.Version)
	assert.NotEqual(t, v1.Fingerprint, v2.Fingerprint)

	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, r.Save(path))

	loaded, err := LoadRegistry(path, testutil.TestLogger(t))
	require.NoError(t, err)
	latest, ok := loaded.Latest("orders")
	require.True(t, ok)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, v2.Fingerprint, latest.Fingerprint)
	require.Len(t, latest.Metadata.Output, 1)
	assert.Equal(t, tabular.TypeR8, latest.Metadata.Output[0].Type)
	assert.Equal(t, []string{"orders"}, loaded.Collections())
	assert.Len(t, loaded.Versions("orders"), 2)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "none.yaml"), testutil.TestLogger(t))
	require.NoError(t, err)
	_, ok := r.Latest("x")
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	pinned := []tabular.ColumnSchema{{Name: "a", Type: tabular.TypeI8}, {Name: "b", Type: tabular.TypeString}, {Name: "c", Type: tabular.TypeBool}}
	fresh := []tabular.ColumnSchema{{Name: "a", Type: tabular.TypeR8}, {Name: "c", Type: tabular.TypeBool}, {Name: "d", Type: tabular.TypeDate}}

	changes := Diff(pinned, fresh)
	assert.Equal(t, []Change{
		{Kind: ChangeType, Column: "a", From: tabular.TypeI8, To: tabular.TypeR8},
		{Kind: ChangeRemoved, Column: "b", From: tabular.TypeString},
		{Kind: ChangeAdded, Column: "d", To: tabular.TypeDate},
	}, changes)
	assert.Equal(t, "a: i8 -> r8", changes[0].String())
	assert.Empty(t, Diff(pinned, pinned))
}
