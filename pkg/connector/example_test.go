package connector_test

import (
	"context"
	"fmt"
	"io"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/pkg/tabular"
	"github.com/ajitpratap0/mongobridge/pkg/testutil"

	dstmongo "github.com/ajitpratap0/mongobridge/pkg/connector/destinations/mongodb"
	srcmongo "github.com/ajitpratap0/mongobridge/pkg/connector/sources/mongodb"
)

type sliceRows struct {
	rows [][]tabular.Value
}

func (s *sliceRows) Next() ([]tabular.Value, error) {
	if len(s.rows) == 0 {
		return nil, io.EOF
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

// Example extracts a collection into rows and loads them into another
// collection under a nested item document.
func Example() {
	ctx := context.Background()
	orders := testutil.NewCollection("orders",
		bson.D{{Key: "_id", Value: 1}, {Key: "sku", Value: "a-1"}, {Key: "qty", Value: int32(3)}},
		bson.D{{Key: "_id", Value: 2}, {Key: "sku", Value: "b-22"}, {Key: "qty", Value: int32(5)}},
	)

	src := srcmongo.NewSource(orders, srcmongo.Options{})
	src.SetLogger(zap.NewNop())
	meta, err := src.Discover(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range meta.Output {
		fmt.Printf("column %s %s\n", c.Name, c.Type)
	}

	out := tabular.NewMemoryBuffer(meta.Output)
	if err := src.PreExecute(meta, out, nil); err != nil {
		log.Fatal(err)
	}
	if err := src.PrimeOutput(ctx); err != nil {
		log.Fatal(err)
	}

	archive := testutil.NewCollection("archive")
	dst := dstmongo.NewDestination(archive, 10)
	dst.SetLogger(zap.NewNop())
	cols := []tabular.ColumnSchema{
		{Name: "item.sku", Type: tabular.TypeWString},
		{Name: "item.qty", Type: tabular.TypeI4},
	}
	if err := dst.PreExecute(cols); err != nil {
		log.Fatal(err)
	}
	if err := dst.ProcessInput(ctx, &sliceRows{rows: out.Rows()}); err != nil {
		log.Fatal(err)
	}

	for _, doc := range archive.Docs() {
		fmt.Printf("%s x%d\n", doc.Lookup("item", "sku").StringValue(), doc.Lookup("item", "qty").Int32())
	}

	// Output:
	// column sku str
	// column qty i8
	// a-1 x3
	// b-22 x5
}
