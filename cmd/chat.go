package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rax/app/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively in a terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// log lines on stderr would tear the alt screen
	logger := slog.Default()
	slog.SetDefault(slog.New(slog.DiscardHandler))
	defer slog.SetDefault(logger)

	s, err := newStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("cannot open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	summary := fmt.Sprintf("store=%s index=%s embedding=%s chat=%s top_k=%d",
		cfg.Store.Backend, cfg.Store.IndexName, cfg.Embedding.Model, cfg.Chat.Model, cfg.TopK)
	m := tui.New(newQueryService(cfg, newEmbedder(cfg), s), cfg.TopK, cfg.Server.RequestTimeout, summary)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
