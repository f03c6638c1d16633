package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rax/loader/service"
)

var flagIngestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf ...]",
	Short: "Chunk, embed and index PDFs (defaults to every PDF in DATA_DIR)",
	Long: `Without arguments every PDF directly inside DATA_DIR is ingested as one run.
With --watch, rax keeps polling DATA_DIR and ingests each new PDF as it settles,
moving it to the archive directory on success and to the bad directory when it
cannot be read.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&flagIngestWatch, "watch", false, "Keep watching DATA_DIR for new PDFs")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if flagIngestWatch && len(args) > 0 {
		return usagef("--watch takes no file arguments; it watches %s", cfg.DataDir)
	}

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

	svc := newIngestService(cfg, embedder, s)

	if flagIngestWatch {
		printInfo("watch", fmt.Sprintf("watching %s (Ctrl+C to stop)", cfg.DataDir))
		return svc.Watch(ctx)
	}

	svc.OnState = func(_ uuid.UUID, state service.State) {
		printInfo("ingest", state.String())
	}

	var report *service.Report
	if len(args) == 0 {
		report, err = svc.IngestDir(ctx, cfg.DataDir)
	} else {
		report, err = svc.Ingest(ctx, args)
	}
	if err != nil {
		if errors.Is(err, service.ErrIngestInProgress) {
			printWarn("ingest", "another ingestion run is in progress")
		}
		if report != nil {
			printErr("ingest", fmt.Sprintf("run %s stopped while %s", report.RunID, report.State))
		}
		return err
	}

	printSection("Ingest")
	printOK("", fmt.Sprintf("run %s complete", report.RunID))
	printOK("", fmt.Sprintf("%d documents, %d pages, %d chunks in %d batches",
		report.Documents, report.Pages, report.Chunks, report.Batches))
	return nil
}
