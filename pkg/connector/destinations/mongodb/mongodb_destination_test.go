package mongodb

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
	"github.com/ajitpratap0/mongobridge/pkg/testutil"
)

type rowsOf [][]tabular.Value

func (r *rowsOf) Next() ([]tabular.Value, error) {
	if len(*r) == 0 {
		return nil, io.EOF
	}
	row := (*r)[0]
	*r = (*r)[1:]
	return row, nil
}

func TestDestinationLoadsNestedDocuments(t *testing.T) {
	coll := testutil.NewCollection("people")
	d := NewDestination(coll, 2)
	d.SetLogger(testutil.TestLogger(t))

	require.NoError(t, d.PreExecute([]tabular.ColumnSchema{
		{Name: "name", Type: tabular.TypeWString},
		{Name: "address.city", Type: tabular.TypeWString},
		{Name: "address.zip", Type: tabular.TypeI4},
	}))

	rows := rowsOf{
		{tabular.String(tabular.TypeWString, "ann"), tabular.String(tabular.TypeWString, "Oslo"), tabular.Int(tabular.TypeI4, 150)},
		{tabular.String(tabular.TypeWString, "bob"), tabular.Null(tabular.TypeWString), tabular.Int(tabular.TypeI4, 7)},
		{tabular.String(tabular.TypeWString, "cy"), tabular.String(tabular.TypeWString, "Rome"), tabular.Null(tabular.TypeI4)},
	}
	require.NoError(t, d.ProcessInput(testutil.TestContext(t), &rows))

	assert.Equal(t, int64(3), d.Inserted())
	assert.Equal(t, int64(3), d.Progress().Processed())
	assert.Equal(t, []int{2, 1}, coll.Batches())

	docs := coll.Docs()
	require.Len(t, docs, 3)
	assert.Equal(t, "Oslo", docs[0].Lookup("address", "city").StringValue())
	assert.Equal(t, int32(150), docs[0].Lookup("address", "zip").Int32())
}

func TestDestinationRequiresPreExecute(t *testing.T) {
	d := NewDestination(testutil.NewCollection("x"), 0)
	rows := rowsOf{}
	err := d.ProcessInput(testutil.TestContext(t), &rows)
	require.Error(t, err)
	assert.Equal(t, int64(0), d.Inserted())
}

func TestDestinationRejectsUnsupportedColumns(t *testing.T) {
	d := NewDestination(testutil.NewCollection("x"), 0)
	err := d.PreExecute([]tabular.ColumnSchema{{Name: "price", Type: tabular.TypeCurrency}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))

	assert.Error(t, d.PreExecute(nil))
}
