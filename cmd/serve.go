package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rax/app/server"
)

const shutdownTimeout = 10 * time.Second

var flagServeIngest bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GET /ask and POST /api/v1/ask over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagServeIngest, "ingest", false, "Ingest DATA_DIR before serving (useful with the memory store)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder := newEmbedder(cfg)
	s, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cannot open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}()

	if flagServeIngest {
		report, err := newIngestService(cfg, embedder, s).IngestDir(ctx, cfg.DataDir)
		if err != nil {
			return err
		}
		slog.Info("startup ingestion complete", "run_id", report.RunID, "chunks", report.Chunks)
	}

	srv := server.NewServer(cfg.Server.Addr, server.Deps{
		Asker:          newQueryService(cfg, embedder, s),
		StoreBackend:   cfg.Store.Backend,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("received shutdown signal, shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
