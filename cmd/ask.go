package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var flagAskTopK int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the indexed PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&flagAskTopK, "top-k", "k", 0, "Number of chunks to retrieve (default TOP_K)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if flagAskTopK < 0 {
		return usagef("--top-k must not be negative")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()

	s, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cannot open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}()

	resp, err := newQueryService(cfg, newEmbedder(cfg), s).Ask(ctx, question, flagAskTopK)
	if err != nil {
		return err
	}
	fmt.Print(renderAnswer(resp))
	return nil
}
