package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/revittco/postdesk/internal/blog"
	"github.com/revittco/postdesk/internal/consistency"
)

func printPage(w io.Writer, res blog.ListResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tCREATED")
	for _, p := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.ID, p.Classification(), p.Title, p.CreatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()

	if res.CacheHit {
		fmt.Fprintf(w, "(cached, age %s)\n", res.CacheAge.Round(time.Second))
	}
	if res.PageInfo.Next != "" {
		fmt.Fprintf(w, "next page: %s\n", res.PageInfo.Next)
	}
}

func printResult(w io.Writer, res blog.MutationResult) {
	fmt.Fprintf(w, "outcome: %s\n", res.Outcome)
	if res.Post != nil {
		fmt.Fprintf(w, "  %s %s %q\n", res.Post.ID, res.Post.Classification(), res.Post.Title)
	}
	for _, p := range res.Posts {
		fmt.Fprintf(w, "  %s %s %q\n", p.ID, p.Classification(), p.Title)
	}
	if res.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", res.Warning)
	}
	printReport(w, res.Report)
}

func printReport(w io.Writer, rep consistency.Report) {
	if rep.Effects == 0 {
		return
	}
	fmt.Fprintf(w, "cache: %d views, %d patched, %d evicted", rep.Views, len(rep.Patched), len(rep.Evicted))
	if rep.FullFlush {
		fmt.Fprint(w, ", full flush")
	}
	if rep.Recovered != nil {
		fmt.Fprintf(w, " (recovered: %v)", rep.Recovered)
	}
	fmt.Fprintln(w)
}
