package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mindfusion/backend/app"
	"github.com/mindfusion/backend/config"
	"github.com/mindfusion/backend/internal/observability"
	"github.com/mindfusion/backend/routes"
	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/chat"
	"github.com/mindfusion/backend/services/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mindfusion",
		Short: "MindFusion multi-provider answer service",
		Long: `MindFusion sends each question to every configured LLM provider in
parallel and merges the successful answers into one labeled response.

Providers and credentials are read from the environment (and .env).
Use 'mindfusion serve' to run the HTTP API.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newAskCmd(), newProvidersCmd())
	return root
}

// --- serve command ---

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting MindFusion backend",
		zap.String("environment", cfg.Environment),
		zap.String("address", cfg.Server.Address()),
		zap.Duration("per_call_timeout", cfg.FanOut.PerCallTimeout))

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			_ = deps.Close(context.Background())
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// --- ask command ---

func newAskCmd() *cobra.Command {
	var (
		lang    string
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask every provider once and print the merged answer",
		Long: `Ask runs the same pipeline as POST /api/chat without starting a server.
The outcome trail is not written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg.Database.ConnectionString = ""
			if timeout > 0 {
				cfg.FanOut.PerCallTimeout = timeout
			}

			logger, err := initLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			deps, err := app.NewDependencies(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(context.Background()) }()

			return ask(cmd.Context(), cmd.OutOrStdout(), deps.Chat, chat.Request{Question: args[0], Lang: lang}, asJSON)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "language hint passed to providers")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-provider call timeout (default from FANOUT_PER_CALL_TIMEOUT)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response payload as JSON")
	return cmd
}

// asker is the slice of the chat service the CLI needs
type asker interface {
	Ask(ctx context.Context, req chat.Request) (*chat.ResponsePayload, error)
}

func ask(ctx context.Context, out io.Writer, svc asker, req chat.Request, asJSON bool) error {
	payload, err := svc.Ask(ctx, req)
	if err != nil {
		if services.IsNoSuccessError(err) {
			if b, ok := services.GetErrorDetails(err)["responses"].(providers.Breakdown); ok {
				writeBreakdown(out, b)
			}
		}
		return errors.New(services.GetErrorMessage(err))
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Fprintln(out, payload.Answer)
	fmt.Fprintf(out, "\nconfidence: %d\n\n", payload.Confidence)
	writeBreakdown(out, payload.Responses)
	return nil
}

func writeBreakdown(out io.Writer, b providers.Breakdown) {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS\tDETAIL\tLATENCY")
	for _, id := range ids {
		o := b[id]
		detail := fmt.Sprintf("confidence %d", o.Confidence)
		if !o.IsSuccess() {
			detail = string(o.Reason)
			if o.Detail != "" {
				detail += ": " + o.Detail
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, o.Status, detail, o.Latency.Round(time.Millisecond))
	}
	_ = tw.Flush()
}

// --- providers command ---

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			writeProviders(cmd.OutOrStdout(), cfg.Providers)
			return nil
		},
	}
}

func writeProviders(out io.Writer, specs []providers.Spec) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tKIND\tMODEL\tWEIGHT\tCREDENTIAL")
	for _, s := range specs {
		credential := "missing (" + s.APIKeyEnv + ")"
		if s.HasCredential() {
			credential = "set"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.DisplayLabel(), s.Kind, s.Model, s.TrustWeight, credential)
	}
	_ = tw.Flush()
}

// initLogger builds the process logger from configuration
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "mindfusion")), nil
}
