// Command sequoia inspects the records behind the widgets from a terminal:
// DID resolution, raw records, reply threads, rendered comments and a site's
// publication URI.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sequoia-server/internal/atproto"
	"sequoia-server/internal/config"
	"sequoia-server/internal/richtext"
	"sequoia-server/internal/thread"
	"sequoia-server/internal/util"
	"sequoia-server/internal/widget"
)

type options struct {
	plcURL     string
	appViewURL string
	timeout    time.Duration
	verbose    bool
}

func main() {
	if err := newRootCmd(config.GetServerConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.ServerConfig) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "sequoia",
		Short:        "Inspect AT Protocol documents, threads and publications",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.plcURL, "plc", cfg.PLCURL, "did:plc directory URL")
	flags.StringVar(&opts.appViewURL, "appview", cfg.AppViewURL, "AppView URL for threads")
	flags.DurationVar(&opts.timeout, "timeout", cfg.HTTPTimeout.Duration, "request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(resolveCmd(opts))
	rootCmd.AddCommand(recordCmd(opts))
	rootCmd.AddCommand(threadCmd(opts))
	rootCmd.AddCommand(commentsCmd(opts))
	rootCmd.AddCommand(publicationCmd(opts))
	return rootCmd
}

func (o *options) httpClient() *http.Client {
	return &http.Client{Timeout: o.timeout, CheckRedirect: atproto.DefaultHTTPClient.CheckRedirect}
}

func (o *options) client() *atproto.Client {
	c := o.httpClient()
	return atproto.NewClient(c, atproto.NewResolver(c, o.plcURL), o.appViewURL)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func resolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <did>",
		Short: "Print the PDS endpoint of a DID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			c := opts.httpClient()
			endpoint, err := atproto.NewResolver(c, opts.plcURL).ResolvePDS(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), endpoint)
			return nil
		},
	}
}

func recordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "record <at-uri>",
		Short: "Fetch a record and print its JSON value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := atproto.ParseURI(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			rec, err := opts.client().GetRecord(ctx, uri.Authority, uri.Collection, uri.RecordKey)
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, rec, "", "  "); err != nil {
				return fmt.Errorf("format record: %w", err)
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func threadCmd(opts *options) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "thread <post-uri>",
		Short: "Print the replies to a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			root, err := opts.client().GetPostThread(ctx, args[0], depth)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			replies := root.PostReplies()
			fmt.Fprintf(w, "%d comments\n", thread.CountComments(replies))

			now := time.Now()
			for _, reply := range replies {
				fmt.Fprintln(w)
				for _, e := range thread.Flatten(reply) {
					p := e.Post
					fmt.Fprintf(w, "%s @%s · %s\n  %s\n", p.Author.Name(), p.Author.Handle,
						util.RelativeTime(p.Record.CreatedTime(), now), util.TruncateStringRunes(p.Record.Text, 200))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", atproto.DefaultThreadDepth, "reply depth to fetch")
	return cmd
}

func commentsCmd(opts *options) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "comments <document-uri>",
		Short: "Load a document's comments the way the widget does and print them as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			c := widget.NewComments("cli", widget.CommentsConfig{DocumentURI: args[0], Depth: depth}, opts.client(), nil, slog.Default())
			defer c.Close()
			c.Mount(ctx)

			return printComments(cmd.OutOrStdout(), c.State())
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", atproto.DefaultThreadDepth, "reply depth to fetch")
	return cmd
}

func printComments(w io.Writer, st widget.CommentsState) error {
	switch st.Kind {
	case widget.CommentsError:
		return fmt.Errorf("failed to load comments: %s", st.Message)
	case widget.CommentsNoCommentsEnabled:
		fmt.Fprintln(w, "Comments are not enabled for this post.")
		return nil
	case widget.CommentsEmpty:
		fmt.Fprintf(w, "No comments yet. Reply at %s\n", st.PostURL)
		return nil
	case widget.CommentsLoaded:
	default:
		fmt.Fprintf(w, "state: %s\n", st.Kind)
		return nil
	}

	fmt.Fprintf(w, "<!-- %s -->\n", st.PostURL)
	for _, reply := range st.Thread.PostReplies() {
		fmt.Fprintln(w, `<div class="sequoia-thread">`)
		for _, e := range thread.Flatten(reply) {
			p := e.Post
			fmt.Fprintf(w, "  <p data-author=\"%s\">%s</p>\n", html.EscapeString(p.Author.Handle), richtext.Render(p.Record.Text, p.Record.Facets))
		}
		fmt.Fprintln(w, `</div>`)
	}
	return nil
}

func publicationCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publication <origin>",
		Short: "Read a site's publication URI from its well-known endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			uri, err := atproto.NewPublicationProbe(opts.httpClient(), args[0]).PublicationURI(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
}
