package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/events"
	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/post"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const consoleHelp = `commands:
  list [all|published|unpublished|binned] [newest|oldest|title|title-desc]
  next                      read the page after the last one listed
  publish|unpublish|bin|restore|delete <id>...
  views                     show cached list pages
  stats                     show cache statistics
  help
  quit`

var consoleFilters = map[string]post.StatusFilter{
	"all":         post.FilterNone,
	"published":   post.FilterPublished,
	"unpublished": post.FilterUnpublished,
	"binned":      post.FilterBinned,
}

var consoleSorts = map[string]post.SortKey{
	"newest":     post.SortCreatedDesc,
	"oldest":     post.SortCreatedAsc,
	"title":      post.SortTitleAsc,
	"title-desc": post.SortTitleDesc,
}

func (c *CLI) newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive session sharing one cache across commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runConsole(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runConsole reads commands until EOF or quit. Invalidation reports are
// logged as they arrive.
func (c *CLI) runConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	reports := c.app.bus.Subscribe(events.Filter{Changed: true})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for rep := range reports {
			c.app.logger.Info("cache repaired",
				"effects", rep.Effects, "views", rep.Views,
				"patched", len(rep.Patched), "evicted", len(rep.Evicted),
				"full_flush", rep.FullFlush, "duration", rep.Duration)
		}
		return nil
	})
	g.Go(func() error {
		defer c.app.bus.Unsubscribe(reports)
		s := &session{cli: c, out: out, filter: post.FilterNone, sort: post.SortCreatedDesc}
		return s.loop(ctx, in)
	})
	return g.Wait()
}

// session is the state of one console.
type session struct {
	cli    *CLI
	out    io.Writer
	filter post.StatusFilter
	sort   post.SortKey
	next   string
}

func (s *session) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprintln(s.out, `postdesk console; type "help" for commands`)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := s.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *session) exec(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		fmt.Fprintln(s.out, consoleHelp)
		return nil
	case "list":
		return s.list(ctx, args)
	case "next":
		if s.next == "" {
			return fmt.Errorf("no next page")
		}
		return s.page(ctx, s.next)
	case "views":
		return s.views()
	case "stats":
		st := s.cli.app.cache.Stats()
		fmt.Fprintf(s.out, "entries %d  hits %d  misses %d  updates %d  evictions %d  hit rate %.2f  reports dropped %d\n",
			st.Entries, st.Hits, st.Misses, st.Updates, st.Evictions, st.HitRate, s.cli.app.bus.Dropped())
		return nil
	}

	fns := map[string]mutateFunc{
		"publish":   s.cli.publish,
		"unpublish": s.cli.unpublish,
		"bin":       s.cli.bin,
		"restore":   s.cli.restore,
		"delete":    s.cli.remove,
	}
	fn, ok := fns[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <id>...", name)
	}
	res, err := fn(ctx, args)
	if err != nil {
		return err
	}
	printResult(s.out, res)
	return nil
}

func (s *session) list(ctx context.Context, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("usage: list [filter] [order]")
	}
	if len(args) > 0 {
		f, ok := consoleFilters[args[0]]
		if !ok {
			return fmt.Errorf("unknown filter %q", args[0])
		}
		s.filter = f
	}
	if len(args) > 1 {
		o, ok := consoleSorts[args[1]]
		if !ok {
			return fmt.Errorf("unknown order %q", args[1])
		}
		s.sort = o
	}
	return s.page(ctx, "")
}

func (s *session) page(ctx context.Context, token string) error {
	res, err := s.cli.app.svc.ListPage(ctx, s.filter, s.sort, token)
	if err != nil {
		return err
	}
	s.next = res.PageInfo.Next
	printPage(s.out, res)
	return nil
}

// views prints the cached list pages grouped by signature.
func (s *session) views() error {
	reg := consistency.NewRegistry(s.cli.app.cache, listing.Field, s.cli.app.logger)
	snap, err := reg.Snapshot()
	if err != nil {
		return err
	}
	views := snap.Views()
	sort.Slice(views, func(i, j int) bool {
		return views[i].Signature.String() < views[j].Signature.String()
	})

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIEW\tITEMS\tENTRIES\tNEXT")
	for _, v := range views {
		next := "-"
		if v.PageInfo.Next != "" {
			next = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", v.Signature, len(v.Items), len(v.Keys), next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d views\n", snap.Len())
	return nil
}
