package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

var (
	// These variables are set in the build step
	version   = "dev"
	commit    string
	buildTime string
)

// printJSON writes body indented, or as-is when it is not valid JSON.
func printJSON(w io.Writer, body json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(body)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// call is the shape shared by the one-shot commands.
type call func(ctx context.Context, c *tinder.Client, args []string) (json.RawMessage, error)

func (a *app) run(fn call) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		body, err := fn(cmd.Context(), a.client(), args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), body)
	}
}

func (a *app) authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth <facebook-token> <facebook-user-id>",
		Short: "Exchange Facebook credentials for a session token and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			if _, err := client.Authorize(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), client.Token())
			return err
		},
	}
}

func (a *app) recsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recs",
		Short: "Print recommended users",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *tinder.Client, _ []string) (json.RawMessage, error) {
			return c.GetRecommendations(ctx)
		}),
	}
}

func (a *app) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Print the account metadata",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *tinder.Client, _ []string) (json.RawMessage, error) {
			return c.GetAccount(ctx)
		}),
	}
}

func (a *app) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Print a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *tinder.Client, args []string) (json.RawMessage, error) {
			return c.GetUser(ctx, args[0])
		}),
	}
}

func (a *app) updatesCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Print matches, messages and blocks since a date",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *tinder.Client, _ []string) (json.RawMessage, error) {
			return c.GetUpdatesSince(ctx, since)
		}),
	}
	cmd.Flags().StringVar(&since, "since", "", "ISO-8601 date, e.g. 2024-05-01T10:00:00.000Z (default everything)")

	return cmd
}

func (a *app) messageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "message <match-id> <text>",
		Short: "Send a message to a match",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, c *tinder.Client, args []string) (json.RawMessage, error) {
			return c.SendMessage(ctx, args[0], args[1])
		}),
	}
}

func (a *app) likeCmd() *cobra.Command {
	var (
		photoID string
		hash    string
		sNumber int64
	)

	cmd := &cobra.Command{
		Use:   "like <user-id>",
		Short: "Like a user's photo",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *tinder.Client, args []string) (json.RawMessage, error) {
			return c.Like(ctx, args[0], photoID, hash, sNumber)
		}),
	}
	cmd.Flags().StringVar(&photoID, "photo", "", "Photo id")
	cmd.Flags().StringVar(&hash, "hash", "", "Photo content hash")
	cmd.Flags().Int64Var(&sNumber, "s-number", 0, "Photo s_number")
	_ = cmd.MarkFlagRequired("photo")
	_ = cmd.MarkFlagRequired("hash")
	_ = cmd.MarkFlagRequired("s-number")

	return cmd
}

func (a *app) passCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pass <user-id>",
		Short: "Pass on a user",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *tinder.Client, args []string) (json.RawMessage, error) {
			return c.Pass(ctx, args[0])
		}),
	}
}

func (a *app) pollCmd() *cobra.Command {
	var (
		interval    time.Duration
		since       string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll for updates and print each batch until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			start, err := tinder.ParseActivityDate(since)
			if err != nil {
				return err
			}

			var opts []tinder.Option
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				opts = append(opts, tinder.WithMetrics(tinder.NewMetrics(reg)))

				shutdown := a.serveMetrics(metricsAddr, reg)
				defer shutdown()
			}

			out := cmd.OutOrStdout()
			a.logger.Info("polling for updates", "interval", interval, "since", since)

			return a.client(opts...).PollUpdates(ctx, interval, start, func(_ context.Context, updates json.RawMessage) error {
				return printJSON(out, updates)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between polls")
	cmd.Flags().StringVar(&since, "since", "", "ISO-8601 date to start from (default everything)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

// serveMetrics exposes reg on addr/metrics and returns a function that stops the server.
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		// The root pre-run loads config; version needs none.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s/%s (%s #%s)\n",
				tinderctl, version, runtime.GOOS, runtime.GOARCH, buildTime, commit)
			return err
		},
	}
}
