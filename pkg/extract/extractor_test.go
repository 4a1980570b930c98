package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
	"github.com/ajitpratap0/mongobridge/pkg/testutil"
)

type fixture struct {
	meta   *tabular.Metadata
	output *tabular.MemoryBuffer
	errOut *tabular.MemoryBuffer
}

func newFixture(cols ...tabular.ColumnSchema) *fixture {
	meta := tabular.NewMetadata()
	meta.ReplaceColumns(cols)
	return &fixture{
		meta:   meta,
		output: tabular.NewMemoryBuffer(meta.Output),
		errOut: tabular.NewMemoryBuffer(meta.ErrorOutput),
	}
}

func (f *fixture) extractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(f.meta, f.output, f.errOut, WithLogger(testutil.TestLogger(t)), WithCollection("c"))
	require.NoError(t, err)
	return e
}

func cursor(t *testing.T, docs ...bson.D) *testutil.SliceCursor {
	c := &testutil.SliceCursor{}
	for _, d := range docs {
		c.Docs = append(c.Docs, testutil.MustRaw(t, d))
	}
	return c
}

func TestRunCommitsRowsInOrder(t *testing.T) {
	f := newFixture(
		tabular.ColumnSchema{Name: "a", Type: tabular.TypeI8},
		tabular.ColumnSchema{Name: "b", Type: tabular.TypeString, Length: 256},
	)
	cur := cursor(t,
		bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}},
		bson.D{{Key: "a", Value: int64(2)}},
		bson.D{{Key: "a", Value: nil}, {Key: "b", Value: "z"}},
	)

	stats, err := f.extractor(t).Run(testutil.TestContext(t), cur)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 3, Committed: 3}, stats)
	assert.True(t, cur.Closed)
	assert.True(t, f.output.Ended())
	assert.True(t, f.errOut.Ended())

	rows := f.output.Rows()
	require.Len(t, rows, 3)
	assert.True(t, rows[0][0].Equal(tabular.Int(tabular.TypeI8, 1)))
	assert.Equal(t, "x", rows[0][1].Text())
	assert.True(t, rows[1][1].IsNull())
	assert.True(t, rows[2][0].IsNull())
	assert.Equal(t, "z", rows[2][1].Text())
	assert.Empty(t, f.errOut.Rows())
}

func TestFailComponentNamesColumn(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "age", Type: tabular.TypeI8})
	e := f.extractor(t)

	_, err := e.Run(testutil.TestContext(t), cursor(t, bson.D{{Key: "age", Value: "abc"}}))
	require.Error(t, err)
	column, ok := errors.Column(err)
	require.True(t, ok)
	assert.Equal(t, "age", column)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConversion))
	assert.Contains(t, err.Error(), "age")
	assert.Equal(t, RowState{Phase: PhaseFailed, Column: 0}, e.State())
	assert.False(t, f.output.Ended())
}

func TestRedirectRowOnConversionError(t *testing.T) {
	f := newFixture(
		tabular.ColumnSchema{Name: "name", Type: tabular.TypeString, Length: 256},
		tabular.ColumnSchema{Name: "age", Type: tabular.TypeI8, ErrorDisposition: tabular.RedirectRow},
		tabular.ColumnSchema{Name: "city", Type: tabular.TypeString, Length: 256},
	)
	e := f.extractor(t)

	stats, err := e.Run(testutil.TestContext(t), cursor(t,
		bson.D{{Key: "name", Value: "ann"}, {Key: "age", Value: "abc"}, {Key: "city", Value: "x"}},
		bson.D{{Key: "name", Value: "bob"}, {Key: "age", Value: int32(4)}},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Redirected)
	assert.Equal(t, int64(1), stats.Committed)

	rows := f.output.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0][0].Text())

	errRows := f.errOut.Rows()
	require.Len(t, errRows, 1)
	ageCol, _ := f.meta.Lookup("age")
	code, _ := errRows[0][0].Int64()
	colID, _ := errRows[0][1].Int64()
	assert.Equal(t, tabular.ErrorCodeConversion, code)
	assert.Equal(t, int64(ageCol.ID), colID)
	assert.Equal(t, "ann", errRows[0][2].Text())
	assert.True(t, errRows[0][3].IsNull())
	assert.True(t, errRows[0][4].IsNull())
}

func TestRedirectKeepsRelativeOrder(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "n", Type: tabular.TypeI8, ErrorDisposition: tabular.RedirectRow})

	_, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t,
		bson.D{{Key: "n", Value: "bad1"}},
		bson.D{{Key: "n", Value: int32(1)}},
		bson.D{{Key: "n", Value: "bad2"}},
		bson.D{{Key: "n", Value: int32(2)}},
	))
	require.NoError(t, err)
	require.Len(t, f.output.Rows(), 2)
	require.Len(t, f.errOut.Rows(), 2)
	first, _ := f.output.Rows()[0][0].Int64()
	second, _ := f.output.Rows()[1][0].Int64()
	assert.Equal(t, []int64{1, 2}, []int64{first, second})
}

func TestIgnoreConversionWritesNull(t *testing.T) {
	f := newFixture(
		tabular.ColumnSchema{Name: "n", Type: tabular.TypeI8, ErrorDisposition: tabular.Ignore},
		tabular.ColumnSchema{Name: "s", Type: tabular.TypeString, Length: 10},
	)
	stats, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t, bson.D{{Key: "n", Value: "abc"}, {Key: "s", Value: "ok"}}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Ignored)

	rows := f.output.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0][0].IsNull())
	assert.Equal(t, "ok", rows[0][1].Text())
}

func TestTruncationDispositions(t *testing.T) {
	t.Run("fail", func(t *testing.T) {
		f := newFixture(tabular.ColumnSchema{Name: "s", Type: tabular.TypeString, Length: 3})
		_, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t, bson.D{{Key: "s", Value: "abcdef"}}))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeTruncation))
	})

	t.Run("ignore clamps", func(t *testing.T) {
		f := newFixture(tabular.ColumnSchema{Name: "s", Type: tabular.TypeString, Length: 3, TruncationDisposition: tabular.Ignore})
		_, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t, bson.D{{Key: "s", Value: "abcdef"}}))
		require.NoError(t, err)
		require.Len(t, f.output.Rows(), 1)
		assert.Equal(t, "abc", f.output.Rows()[0][0].Text())
	})

	t.Run("redirect", func(t *testing.T) {
		f := newFixture(
			tabular.ColumnSchema{Name: "a", Type: tabular.TypeI8},
			tabular.ColumnSchema{Name: "s", Type: tabular.TypeString, Length: 3, TruncationDisposition: tabular.RedirectRow},
		)
		_, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t, bson.D{{Key: "a", Value: int32(7)}, {Key: "s", Value: "abcdef"}}))
		require.NoError(t, err)
		assert.Empty(t, f.output.Rows())
		require.Len(t, f.errOut.Rows(), 1)
		code, _ := f.errOut.Rows()[0][0].Int64()
		assert.Equal(t, tabular.ErrorCodeTruncation, code)
		a, _ := f.errOut.Rows()[0][2].Int64()
		assert.Equal(t, int64(7), a)
	})
}

func TestLossyTextCountsWarning(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "s", Type: tabular.TypeString, Length: 256})
	stats, err := f.extractor(t).Run(testutil.TestContext(t), cursor(t,
		bson.D{{Key: "s", Value: int32(5)}},
		bson.D{{Key: "s", Value: primitive.NewObjectID()}},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Warnings)
	assert.Equal(t, "5", f.output.Rows()[0][0].Text())
}

func TestNewRequiresErrorOutputForRedirect(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "n", Type: tabular.TypeI8, ErrorDisposition: tabular.RedirectRow})
	_, err := New(f.meta, f.output, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewRejectsUnboundColumn(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "n", Type: tabular.TypeI8})
	_, err := New(f.meta, tabular.NewMemoryBuffer([]tabular.ColumnSchema{{Name: "other"}}), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestProcessReportsState(t *testing.T) {
	f := newFixture(tabular.ColumnSchema{Name: "n", Type: tabular.TypeI8, ErrorDisposition: tabular.RedirectRow})
	var progressed int64
	e, err := New(f.meta, f.output, f.errOut, WithLogger(testutil.TestLogger(t)), WithProgress(func(n int64) { progressed += n }))
	require.NoError(t, err)

	require.NoError(t, e.Process(testutil.MustRaw(t, bson.D{{Key: "n", Value: int32(1)}})))
	assert.Equal(t, PhaseCommitted, e.State().Phase)

	require.NoError(t, e.Process(testutil.MustRaw(t, bson.D{{Key: "n", Value: "x"}})))
	assert.Equal(t, RowState{Phase: PhaseRedirected, Column: 0}, e.State())
	assert.Equal(t, int64(2), progressed)
	assert.Equal(t, "redirected", e.State().Phase.String())
}
