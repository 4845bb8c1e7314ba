package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/revittco/postdesk/internal/blog"
	"github.com/revittco/postdesk/internal/config"
	"github.com/revittco/postdesk/internal/listing"
	"github.com/revittco/postdesk/internal/post"
	"github.com/spf13/cobra"
)

// CLI is the postdesk command line.
type CLI struct {
	cfg     *Config
	app     *app
	rootCmd *cobra.Command
}

func newCLI(cfg *Config, in io.Reader, out io.Writer) *CLI {
	c := &CLI{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:           "postdesk",
		Short:         "Blog post administration with a self-repairing list cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file")

	c.rootCmd = rootCmd
	rootCmd.AddCommand(
		c.newSeedCmd(),
		c.newListCmd(),
		c.newCreateCmd(),
		c.newMutationCmd("publish", "Publish posts", c.publish),
		c.newMutationCmd("unpublish", "Unpublish posts", c.unpublish),
		c.newMutationCmd("bin", "Move posts to the bin", c.bin),
		c.newMutationCmd("restore", "Restore posts from the bin", c.restore),
		c.newMutationCmd("delete", "Delete posts for good", c.remove),
		c.newTagsCmd(),
		c.newConsoleCmd(),
	)
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if c.app != nil {
		if cerr := c.app.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
		c.app = nil
	}
	return err
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create default tags and apply the YAML config to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := config.SeedDefaultTags(ctx, c.app.db); err != nil {
				return fmt.Errorf("seed tags: %w", err)
			}
			if err := config.Apply(ctx, c.app.db, c.app.file); err != nil {
				return fmt.Errorf("apply config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tags and %d posts from %s\n",
				len(c.app.file.Tags), len(c.app.file.Posts), c.cfg.ConfigFile)
			return nil
		},
	}
}

func (c *CLI) newListCmd() *cobra.Command {
	var a listing.Args
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.svc.ListPosts(cmd.Context(), a.Raw())
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&a.Filter, "filter", "", `filter, e.g. status = "PUBLISHED"`)
	cmd.Flags().StringVar(&a.OrderBy, "order-by", "", `order, e.g. "title" or "created_at desc"`)
	cmd.Flags().StringVar(&a.PageToken, "page-token", "", "token of the page to read")
	return cmd
}

func (c *CLI) newCreateCmd() *cobra.Command {
	var (
		in     blog.NewPost
		status string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Status = post.Status(strings.ToUpper(status))
			res, err := c.app.svc.CreatePost(cmd.Context(), in)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "post title")
	cmd.Flags().StringVar(&in.Body, "body", "", "post body")
	cmd.Flags().StringVar(&status, "status", "UNPUBLISHED", "PUBLISHED or UNPUBLISHED")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag name (repeatable)")
	return cmd
}

// mutateFunc applies one mutation to one or more posts.
type mutateFunc func(ctx context.Context, ids []string) (blog.MutationResult, error)

func (c *CLI) newMutationCmd(use, short string, fn mutateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := fn(cmd.Context(), args)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func (c *CLI) publish(ctx context.Context, ids []string) (blog.MutationResult, error) {
	if len(ids) == 1 {
		return c.app.svc.Publish(ctx, ids[0])
	}
	return c.app.svc.BulkSetStatus(ctx, ids, post.StatusPublished)
}

func (c *CLI) unpublish(ctx context.Context, ids []string) (blog.MutationResult, error) {
	if len(ids) == 1 {
		return c.app.svc.Unpublish(ctx, ids[0])
	}
	return c.app.svc.BulkSetStatus(ctx, ids, post.StatusUnpublished)
}

func (c *CLI) bin(ctx context.Context, ids []string) (blog.MutationResult, error) {
	if len(ids) == 1 {
		return c.app.svc.Bin(ctx, ids[0])
	}
	return c.app.svc.BulkBin(ctx, ids)
}

func (c *CLI) restore(ctx context.Context, ids []string) (blog.MutationResult, error) {
	if len(ids) == 1 {
		return c.app.svc.Restore(ctx, ids[0])
	}
	return c.app.svc.BulkRestore(ctx, ids)
}

// remove deletes posts one at a time; there is no bulk delete.
func (c *CLI) remove(ctx context.Context, ids []string) (blog.MutationResult, error) {
	var last blog.MutationResult
	for _, id := range ids {
		res, err := c.app.svc.Delete(ctx, id)
		if err != nil {
			return res, err
		}
		last = res
	}
	return last, nil
}
