package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/mongobridge/internal/pipeline"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDiscover(w io.Writer, res *pipeline.DiscoverResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tLENGTH\tON ERROR\tON TRUNCATION")
	for _, c := range res.Metadata.Output {
		length := ""
		if c.Length > 0 {
			length = fmt.Sprint(c.Length)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Type, length, c.OnError(), c.OnTruncation())
	}
	_ = tw.Flush()

	if len(res.Dropped) > 0 {
		fmt.Fprintf(w, "\ndropped (never non-null): %s\n", strings.Join(res.Dropped, ", "))
	}
	if len(res.Changes) > 0 {
		fmt.Fprintf(w, "\nchanges since pinned version %d:\n", res.Version)
		for _, c := range res.Changes {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	switch {
	case res.Pinned:
		fmt.Fprintf(w, "\npinned as version %d\n", res.Version)
	case res.Version > 0 && len(res.Changes) == 0:
		fmt.Fprintf(w, "\nmatches pinned version %d\n", res.Version)
	}
}

func printExtract(w io.Writer, res *pipeline.ExtractResult) {
	fmt.Fprintf(w, "%s -> %s: %d rows (%d committed, %d redirected, %d ignored)\n",
		res.Collection, res.OutputPath, res.Stats.Rows, res.Stats.Committed, res.Stats.Redirected, res.Stats.Ignored)
	if res.ErrorPath != "" {
		fmt.Fprintf(w, "redirected rows: %s\n", res.ErrorPath)
	}
	if res.Stats.Warnings > 0 {
		fmt.Fprintf(w, "%d values converted to text with possible loss\n", res.Stats.Warnings)
	}
}
